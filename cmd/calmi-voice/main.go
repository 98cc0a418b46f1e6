// calmi-voice runs a live voice conversation from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/calmihq/calmi/pkg/core/persona"
	"github.com/calmihq/calmi/pkg/core/voice"
	"github.com/calmihq/calmi/pkg/core/voice/gemini"
)

func main() {
	godotenv.Load()

	var (
		name    = flag.String("name", "friend", "your name")
		age     = flag.String("age", string(persona.Age25To34), "age range: under 18, 18–24, 25–34, 35+")
		rel     = flag.String("relationship", string(persona.Single), "relationship status")
		support = flag.String("support", string(persona.SupportAnxiety), "support area: anxiety, depression, relationships, loneliness, something else")
		model   = flag.String("model", voice.DefaultModel, "realtime model")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GEMINI_API_KEY is required")
		os.Exit(1)
	}

	profile := persona.Profile{
		Name:                    *name,
		AgeRange:                persona.AgeRange(*age),
		RelationshipStatus:      persona.RelationshipStatus(*rel),
		SupportType:             persona.SupportType(*support),
		CommunicationPreference: persona.PreferVoice,
	}
	if err := profile.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := voice.DefaultConfig()
	cfg.Model = *model
	cfg.SystemInstruction = persona.LiveVoiceInstruction(profile)

	sink, err := newSpeaker(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sess := voice.NewSession(cfg, gemini.New(apiKey), micOpener{}, sink, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("connecting... press Ctrl-C to hang up")
	if err := sess.Start(ctx); err != nil {
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		sess.Stop()
	}()

	exit := 0
	for ev := range sess.Events() {
		switch ev := ev.(type) {
		case voice.StateChangedEvent:
			logger.Debug("session state", "state", ev.State.String())
			if ev.State == voice.StateActive {
				fmt.Println("connected. start talking.")
			}
		case voice.TranscriptEvent:
			fmt.Printf("\r\033[K%s", ev.Text)
		case voice.SpeakingEvent:
			if !ev.Speaking {
				fmt.Println()
			}
		case voice.ErrorEvent:
			fmt.Fprintln(os.Stderr, ev.UserMessage)
			exit = 1
		case voice.ClosedEvent:
			fmt.Println("\nsession ended")
		}
	}
	os.Exit(exit)
}
