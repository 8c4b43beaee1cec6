package voice

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deleyapp/lawcopilot/internal/client"
	"github.com/deleyapp/lawcopilot/internal/client/knowledge"
	"github.com/deleyapp/lawcopilot/internal/model/chat"
	"github.com/deleyapp/lawcopilot/internal/model/module"
	"github.com/deleyapp/lawcopilot/internal/service/voice"
	"github.com/deleyapp/lawcopilot/internal/store"
	"github.com/deleyapp/lawcopilot/internal/turn"
	"github.com/deleyapp/lawcopilot/pkg/httpx"
)

// Handler drives voice and text turns over HTTP.
type Handler struct {
	voiceSvc *voice.Service
	sessions store.Store
}

// New creates a voice handler.
func New(voiceSvc *voice.Service, sessions store.Store) *Handler {
	return &Handler{voiceSvc: voiceSvc, sessions: sessions}
}

// RegisterRoutes registers the voice routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/voice", func(vr chi.Router) {
		vr.Post("/turn", h.handleTurn)
		vr.Get("/stream/{module}/{sessionID}", h.handleStream)

		wsHandler := NewWebSocketHandler(h.voiceSvc, h.sessions)
		wsHandler.RegisterWebSocketRoutes(vr)
	})
	r.Get("/health", h.handleHealth)
}

// turnRequest is one exchange submitted by a client. Exactly one of text
// and audio_base64 must be set. When sessionId is empty a new session is
// started for the module kind.
type turnRequest struct {
	SessionID   string `json:"sessionId"`
	ModuleType  string `json:"moduleType"`
	EducatorID  string `json:"educatorId"`
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64"`
}

// turnResponse carries both new messages plus the synthesized answer clip.
type turnResponse struct {
	Session          sessionSummary     `json:"session"`
	UserMessage      chat.Message       `json:"userMessage"`
	AssistantMessage chat.Message       `json:"assistantMessage"`
	AudioBase64      string             `json:"audio_base64,omitempty"`
	Sources          []knowledge.Source `json:"sources,omitempty"`
	Notices          []voice.Notice     `json:"notices,omitempty"`
}

type sessionSummary struct {
	ID            string      `json:"id"`
	ModuleType    module.Kind `json:"moduleType"`
	EducatorID    string      `json:"educatorId"`
	EducatorName  string      `json:"educatorName"`
	MessageCount  int         `json:"messageCount"`
	LastMessageAt time.Time   `json:"lastMessageAt"`
}

// handleTurn runs one full exchange: resolve or start the session, then
// transcribe (when audio), query, and synthesize.
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if (req.Text == "") == (req.AudioBase64 == "") {
		httpx.RespondError(w, http.StatusBadRequest, "provide exactly one of text or audio_base64")
		return
	}

	kind, err := module.Parse(req.ModuleType)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.resolveSession(r, kind, req.SessionID, req.EducatorID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		httpx.RespondError(w, status, err.Error())
		return
	}

	result, err := h.voiceSvc.RunTurn(r.Context(), voice.TurnInput{
		Session:     &sess,
		Text:        req.Text,
		AudioBase64: req.AudioBase64,
	})
	if err != nil {
		log.Printf("[voice] turn failed for session=%s: %v", sess.ID, err)
		h.respondTurnError(w, result, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, turnResponse{
		Session:          summarize(sess),
		UserMessage:      result.Exchange.UserMessage,
		AssistantMessage: result.Exchange.AssistantMessage,
		AudioBase64:      result.Exchange.AudioBase64,
		Sources:          result.Sources,
		Notices:          result.Notices,
	})
}

// handleStream runs a text turn and streams the controller's state
// transitions as Server-Sent Events, ending with the messages themselves.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	kind, err := module.Parse(chi.URLParam(r, "module"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	message := r.URL.Query().Get("message")
	if message == "" {
		httpx.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	sess, err := h.sessions.LoadOne(r.Context(), kind, chi.URLParam(r, "sessionID"))
	if errors.Is(err, store.ErrNotFound) {
		httpx.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	httpx.SetupSSEHeaders(w)

	result, err := h.voiceSvc.RunTurn(r.Context(), voice.TurnInput{
		Session: &sess,
		Text:    message,
		OnState: func(s turn.State) {
			httpx.SendSSEEvent(w, flusher, "state", map[string]string{"state": s.String()})
		},
	})
	if err != nil {
		httpx.SendSSEEvent(w, flusher, "error", map[string]any{
			"error":   "turn failed",
			"notices": noticesOrNil(result),
		})
		return
	}

	httpx.SendSSEEvent(w, flusher, "messages", map[string]any{
		"userMessage":      result.Exchange.UserMessage,
		"assistantMessage": result.Exchange.AssistantMessage,
		"notices":          result.Notices,
	})
	if result.Exchange.AudioBase64 != "" {
		httpx.SendSSEEvent(w, flusher, "audio", map[string]string{
			"audio_base64": result.Exchange.AudioBase64,
		})
	}
	httpx.SendSSEEvent(w, flusher, "end", map[string]bool{"finished": true})
}

// handleHealth aggregates upstream service health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	audioStatus, ragStatus := h.voiceSvc.CheckHealth(r.Context())

	status := "healthy"
	if audioStatus != "connected" || ragStatus != "connected" {
		status = "degraded"
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]string{
		"status":        status,
		"audio_service": audioStatus,
		"rag_service":   ragStatus,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) resolveSession(r *http.Request, kind module.Kind, sessionID, educatorID string) (chat.Session, error) {
	if sessionID != "" {
		return h.sessions.LoadOne(r.Context(), kind, sessionID)
	}
	return h.voiceSvc.StartSession(kind, educatorID)
}

// respondTurnError maps a failed turn onto an HTTP status. Upstream
// failures surface as 502 so clients can tell them from gateway bugs.
func (h *Handler) respondTurnError(w http.ResponseWriter, result *voice.TurnResult, err error) {
	status := http.StatusInternalServerError
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		status = http.StatusBadGateway
	}

	payload := map[string]any{"error": err.Error()}
	if result != nil && len(result.Notices) > 0 {
		payload["notices"] = result.Notices
	}
	httpx.RespondJSON(w, status, payload)
}

func summarize(sess chat.Session) sessionSummary {
	return sessionSummary{
		ID:            sess.ID,
		ModuleType:    sess.ModuleType,
		EducatorID:    sess.EducatorID,
		EducatorName:  sess.EducatorName,
		MessageCount:  len(sess.Messages),
		LastMessageAt: sess.LastMessageAt,
	}
}

func noticesOrNil(result *voice.TurnResult) []voice.Notice {
	if result == nil {
		return nil
	}
	return result.Notices
}
