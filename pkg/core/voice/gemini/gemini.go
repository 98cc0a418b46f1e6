// Package gemini implements the realtime voice transport against the
// Gemini Live API (BidiGenerateContent over websocket).
package gemini

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/calmihq/calmi/pkg/core"
	"github.com/calmihq/calmi/pkg/core/voice"
)

// DefaultEndpoint is the production Live API websocket endpoint.
const DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

const (
	keepaliveInterval = 20 * time.Second
	writeTimeout      = 10 * time.Second
)

// Provider dials Live API sessions. It is safe for concurrent use.
type Provider struct {
	apiKey   string
	endpoint string
	dialer   *websocket.Dialer
}

// Option configures a Provider.
type Option func(*Provider)

// WithEndpoint overrides the websocket endpoint, used by tests and
// regional deployments.
func WithEndpoint(u string) Option {
	return func(p *Provider) { p.endpoint = u }
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(p *Provider) { p.dialer = d }
}

// New creates a provider authenticating with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials the Live API and performs session setup. The returned
// transport is live once Connect returns.
func (p *Provider) Connect(ctx context.Context, cfg voice.Config) (voice.Transport, error) {
	u := p.endpoint + "?key=" + url.QueryEscape(p.apiKey)

	conn, _, err := p.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, core.NewConnectionError("dial live api", err)
	}

	t := &transport{
		conn: conn,
		msgs: make(chan voice.ServerMessage, 32),
		done: make(chan struct{}),
		quit: make(chan struct{}),
	}
	if err := t.sendSetup(cfg); err != nil {
		conn.Close()
		return nil, err
	}

	go t.readLoop()
	go t.keepaliveLoop()
	return t, nil
}

type transport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	msgs chan voice.ServerMessage
	done chan struct{}
	quit chan struct{}

	connOnce   sync.Once
	quitOnce   sync.Once
	closedByUs atomic.Bool

	errMu sync.Mutex
	err   error
}

func (t *transport) sendSetup(cfg voice.Config) error {
	msg := setupMessage{
		Setup: setupPayload{
			Model: "models/" + cfg.Model,
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &speechConfig{
					VoiceConfig: voiceConfig{
						PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
					},
				},
			},
			OutputAudioTranscription: &struct{}{},
		},
	}
	if cfg.SystemInstruction != "" {
		msg.Setup.SystemInstruction = &content{
			Parts: []part{{Text: cfg.SystemInstruction}},
		}
	}
	return t.writeJSON(msg)
}

// SendMedia writes one capture frame as a realtime input chunk.
func (t *transport) SendMedia(frame voice.MediaFrame) error {
	return t.writeJSON(realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{{MIMEType: frame.MIMEType, Data: frame.Data}},
		},
	})
}

func (t *transport) writeJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := t.conn.WriteJSON(v); err != nil {
		return core.NewConnectionError("write to live api", err)
	}
	return nil
}

func (t *transport) Messages() <-chan voice.ServerMessage { return t.msgs }

func (t *transport) Done() <-chan struct{} { return t.done }

func (t *transport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

// Close tears the connection down. The read loop observes the closed
// socket and finishes channel shutdown.
func (t *transport) Close() error {
	t.closedByUs.Store(true)
	t.quitOnce.Do(func() { close(t.quit) })
	t.closeConn()
	return nil
}

func (t *transport) closeConn() {
	t.connOnce.Do(func() { t.conn.Close() })
}

func (t *transport) setErr(err error) {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

// readLoop is the only sender on msgs and the only closer of msgs and
// done, so shutdown ordering stays single-threaded.
func (t *transport) readLoop() {
	defer func() {
		t.closeConn()
		close(t.msgs)
		close(t.done)
	}()

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if !t.closedByUs.Load() && !isNormalClose(err) {
				t.setErr(core.NewConnectionError("read live api stream", err))
			}
			return
		}

		var m serverMessage
		if err := json.Unmarshal(data, &m); err != nil {
			// One unparseable frame is not worth killing the stream over.
			continue
		}
		sc := m.ServerContent
		if sc == nil {
			continue
		}

		out := voice.ServerMessage{
			Interrupted:  sc.Interrupted,
			TurnComplete: sc.TurnComplete,
		}
		if sc.OutputTranscription != nil {
			out.TranscriptDelta = sc.OutputTranscription.Text
		}
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "audio/pcm") {
					out.AudioB64 = append(out.AudioB64, p.InlineData.Data)
				}
			}
		}
		select {
		case t.msgs <- out:
		case <-t.quit:
			// Consumer is gone; stop delivering.
			return
		}
	}
}

func (t *transport) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := t.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
