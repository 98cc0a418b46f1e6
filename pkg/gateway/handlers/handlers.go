// Package handlers implements the gateway's HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"

	"github.com/calmihq/calmi/pkg/core"
	"github.com/calmihq/calmi/pkg/core/chat"
	"github.com/calmihq/calmi/pkg/core/persona"
	"github.com/calmihq/calmi/pkg/core/safety"
	"github.com/calmihq/calmi/pkg/gateway/apierror"
	"github.com/calmihq/calmi/pkg/gateway/sse"
	"github.com/calmihq/calmi/pkg/gateway/store"
)

// Replier generates chat replies. Implemented by chat.Engine.
type Replier interface {
	Reply(ctx context.Context, system string, history []chat.Message, message string) (string, error)
	ReplyStream(ctx context.Context, system string, history []chat.Message, message string) iter.Seq2[string, error]
}

// MusicRecommender generates track lists. Implemented by chat.Engine.
type MusicRecommender interface {
	RecommendMusic(ctx context.Context, p persona.Profile, mood string) ([]chat.Track, error)
}

// Handlers holds the API endpoints and their collaborators.
type Handlers struct {
	store  *store.Store
	chat   Replier
	music  MusicRecommender
	logger *slog.Logger
}

// New wires the endpoint set.
func New(st *store.Store, replier Replier, music MusicRecommender, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: st, chat: replier, music: music, logger: logger}
}

// Health reports process liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession starts a chat session for an onboarded profile. The
// request body is the profile itself.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var profile persona.Profile
	if err := decodeJSON(r, &profile); err != nil {
		apierror.Write(w, r, err)
		return
	}
	if err := profile.Validate(); err != nil {
		apierror.Write(w, r, err)
		return
	}

	sess := h.store.Create(profile)
	h.logger.Info("session created", "session_id", sess.ID, "support_type", sess.Profile.SupportType)
	writeJSON(w, http.StatusOK, createSessionResponse{SessionID: sess.ID})
}

type sendChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type sendChatResponse struct {
	Reply  string `json:"reply"`
	Crisis bool   `json:"crisis"`
}

// SendChat generates one reply. Crisis messages short-circuit the model;
// a failed model call degrades to the fixed fallback reply so the user
// never sees a raw error.
func (h *Handlers) SendChat(w http.ResponseWriter, r *http.Request) {
	req, sess, err := h.chatRequest(r)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	if reply, crisis := safety.Screen(req.Message); crisis {
		h.persistExchange(sess.ID, req.Message, reply)
		writeJSON(w, http.StatusOK, sendChatResponse{Reply: reply, Crisis: true})
		return
	}

	history, err := h.store.History(sess.ID, chat.HistoryWindow)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	reply, err := h.chat.Reply(r.Context(), persona.SystemInstruction(sess.Profile), history, req.Message)
	if err != nil {
		h.logger.Warn("chat reply failed, using fallback", "session_id", sess.ID, "error", err)
		reply = chat.FallbackReply
	}

	h.persistExchange(sess.ID, req.Message, reply)
	writeJSON(w, http.StatusOK, sendChatResponse{Reply: reply, Crisis: false})
}

// StreamChat is SendChat as a server-sent event stream: delta events
// with text fragments, then one done event with the full reply.
func (h *Handlers) StreamChat(w http.ResponseWriter, r *http.Request) {
	req, sess, err := h.chatRequest(r)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	if reply, crisis := safety.Screen(req.Message); crisis {
		h.persistExchange(sess.ID, req.Message, reply)
		out, err := sse.New(w)
		if err != nil {
			apierror.Write(w, r, err)
			return
		}
		out.Send("delta", map[string]string{"text": reply})
		out.Send("done", map[string]any{"reply": reply, "crisis": true})
		return
	}

	history, err := h.store.History(sess.ID, chat.HistoryWindow)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	out, err := sse.New(w)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	var full string
	for delta, err := range h.chat.ReplyStream(r.Context(), persona.SystemInstruction(sess.Profile), history, req.Message) {
		if err != nil {
			h.logger.Warn("chat stream failed, using fallback", "session_id", sess.ID, "error", err)
			if full == "" {
				full = chat.FallbackReply
				out.Send("delta", map[string]string{"text": full})
			}
			break
		}
		full += delta
		out.Send("delta", map[string]string{"text": delta})
	}

	h.persistExchange(sess.ID, req.Message, full)
	out.Send("done", map[string]any{"reply": full, "crisis": false})
}

type musicRequest struct {
	SessionID string `json:"session_id"`
	Mood      string `json:"mood"`
}

type musicResponse struct {
	Tracks []chat.Track `json:"tracks"`
}

// RecommendMusic returns a track list for the session's profile. Model
// failures degrade to an empty list; the mode is decorative, not load
// bearing.
func (h *Handlers) RecommendMusic(w http.ResponseWriter, r *http.Request) {
	var req musicRequest
	if err := decodeJSON(r, &req); err != nil {
		apierror.Write(w, r, err)
		return
	}
	sess, err := h.store.Get(req.SessionID)
	if err != nil {
		apierror.Write(w, r, err)
		return
	}

	tracks, err := h.music.RecommendMusic(r.Context(), sess.Profile, req.Mood)
	if err != nil {
		h.logger.Warn("music recommendation failed", "session_id", sess.ID, "error", err)
		tracks = nil
	}
	if tracks == nil {
		tracks = []chat.Track{}
	}
	writeJSON(w, http.StatusOK, musicResponse{Tracks: tracks})
}

func (h *Handlers) chatRequest(r *http.Request) (sendChatRequest, *store.Session, error) {
	var req sendChatRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, nil, err
	}
	if req.Message == "" {
		return req, nil, core.NewInvalidRequestErrorWithParam("message is required", "message")
	}
	sess, err := h.store.Get(req.SessionID)
	if err != nil {
		return req, nil, err
	}
	return req, sess, nil
}

func (h *Handlers) persistExchange(sessionID, userMsg, reply string) {
	if err := h.store.Append(sessionID, chat.Message{Role: chat.RoleUser, Content: userMsg}); err != nil {
		h.logger.Warn("persist user message", "session_id", sessionID, "error", err)
		return
	}
	if err := h.store.Append(sessionID, chat.Message{Role: chat.RoleModel, Content: reply}); err != nil {
		h.logger.Warn("persist model reply", "session_id", sessionID, "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.NewInvalidRequestError("malformed request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
