// Package chat is the text conversation engine. It renders the persona
// prompt, keeps the model call shape in one place and degrades to a
// fixed supportive reply when the model is unreachable.
package chat

import (
	"context"
	"iter"
	"log/slog"

	"google.golang.org/genai"

	"github.com/calmihq/calmi/pkg/core"
)

// DefaultModel is the text conversation model.
const DefaultModel = "gemini-3-flash-preview"

// FallbackReply is used when the model call fails. The user still gets a
// supportive response instead of an error page.
const FallbackReply = "I'm here with you. I'm having a little trouble finding my words right now, but I'm listening. Could you tell me a bit more about what's on your mind?"

// HistoryWindow is how many prior messages accompany each request.
const HistoryWindow = 15

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Engine generates chat replies through the Gemini API.
type Engine struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewEngine creates an engine for the given API key. An empty model
// selects DefaultModel.
func NewEngine(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, core.WrapAPIError("create gemini client", err)
	}
	return &Engine{client: client, model: model, logger: logger}, nil
}

// Model returns the model identifier in use.
func (e *Engine) Model() string { return e.model }

func buildContents(history []Message, message string) []*genai.Content {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))
	return contents
}

func (e *Engine) generateConfig(system string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.8),
		TopP:              genai.Ptr[float32](0.9),
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
}

// Reply generates one response to message given the persona prompt and
// prior history. Only the trailing HistoryWindow messages are sent.
func (e *Engine) Reply(ctx context.Context, system string, history []Message, message string) (string, error) {
	resp, err := e.client.Models.GenerateContent(ctx, e.model,
		buildContents(history, message), e.generateConfig(system))
	if err != nil {
		return "", core.WrapAPIError("generate chat reply", err)
	}
	text := resp.Text()
	if text == "" {
		return "", core.NewAPIError("model returned an empty reply")
	}
	return text, nil
}

// ReplyStream generates a response as incremental text deltas. The
// sequence ends after the final delta or a non-nil error.
func (e *Engine) ReplyStream(ctx context.Context, system string, history []Message, message string) iter.Seq2[string, error] {
	stream := e.client.Models.GenerateContentStream(ctx, e.model,
		buildContents(history, message), e.generateConfig(system))

	return func(yield func(string, error) bool) {
		for resp, err := range stream {
			if err != nil {
				yield("", core.WrapAPIError("stream chat reply", err))
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}
