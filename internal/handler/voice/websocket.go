package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/deleyapp/lawcopilot/internal/model/chat"
	"github.com/deleyapp/lawcopilot/internal/model/module"
	"github.com/deleyapp/lawcopilot/internal/service/voice"
	"github.com/deleyapp/lawcopilot/internal/store"
	"github.com/deleyapp/lawcopilot/internal/turn"
)

// WebSocketHandler keeps a live channel open for one session so clients
// can push audio chunks and receive turn progress without polling.
type WebSocketHandler struct {
	voiceSvc *voice.Service
	sessions store.Store
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the live voice channel handler.
func NewWebSocketHandler(voiceSvc *voice.Service, sessions store.Store) *WebSocketHandler {
	return &WebSocketHandler{
		voiceSvc: voiceSvc,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes registers the live channel route.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{module}/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// AudioChunk is one recorded fragment. The client sets IsFinal on the
// last chunk, which commits the buffered clip as a turn.
type AudioChunk struct {
	AudioData  []byte `json:"audioData"`
	IsFinal    bool   `json:"isFinal"`
	ChunkIndex int    `json:"chunkIndex"`
}

// TextTurn submits a typed question instead of a recording.
type TextTurn struct {
	Text string `json:"text"`
}

// ConfigMessage adjusts per-connection behavior.
type ConfigMessage struct {
	TTSEnabled *bool `json:"ttsEnabled,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connectionState struct {
	kind       module.Kind
	session    chat.Session
	ttsEnabled bool
	buffer     bytes.Buffer
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	kind, err := module.Parse(chi.URLParam(r, "module"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	session, err := h.sessions.LoadOne(r.Context(), kind, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	state := &connectionState{kind: kind, session: session, ttsEnabled: true}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.sendInfo(conn, sessionID, map[string]any{
		"type":       "connected",
		"moduleType": kind,
		"educator":   session.EducatorID,
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[websocket] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.sendError(conn, "session mismatch")
				continue
			}

			h.handleMessage(ctx, conn, state, &msg)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "audio":
		h.handleAudioChunk(ctx, conn, state, msg.Data)
	case "text":
		h.handleTextTurn(ctx, conn, state, msg.Data)
	case "config":
		h.handleConfigMessage(conn, state, msg.Data)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleAudioChunk(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var chunk AudioChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		h.sendError(conn, "invalid audio payload")
		return
	}

	if len(chunk.AudioData) > 0 {
		written, _ := state.buffer.Write(chunk.AudioData)
		log.Printf("[websocket] buffered audio chunk session=%s size=%d total=%d", state.session.ID, written, state.buffer.Len())
	}

	if chunk.IsFinal {
		h.commitBufferedAudio(ctx, conn, state)
	}
}

// commitBufferedAudio turns the accumulated recording into one exchange.
func (h *WebSocketHandler) commitBufferedAudio(ctx context.Context, conn *websocket.Conn, state *connectionState) {
	audioBytes := state.buffer.Bytes()
	state.buffer.Reset()

	if len(audioBytes) == 0 {
		return
	}

	log.Printf("[websocket] committing audio session=%s bytes=%d", state.session.ID, len(audioBytes))
	audioB64 := base64.StdEncoding.EncodeToString(audioBytes)

	h.runTurn(ctx, conn, state, voice.TurnInput{AudioBase64: audioB64})
}

func (h *WebSocketHandler) handleTextTurn(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextTurn
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, "invalid text payload")
		return
	}
	if text.Text == "" {
		return
	}

	h.runTurn(ctx, conn, state, voice.TurnInput{Text: text.Text})
}

func (h *WebSocketHandler) runTurn(ctx context.Context, conn *websocket.Conn, state *connectionState, input voice.TurnInput) {
	input.Session = &state.session
	input.OnState = func(s turn.State) {
		h.sendInfo(conn, state.session.ID, map[string]any{
			"type":  "state",
			"state": s.String(),
		})
	}

	result, err := h.voiceSvc.RunTurn(ctx, input)
	if result != nil {
		for _, notice := range result.Notices {
			h.sendInfo(conn, state.session.ID, map[string]any{
				"type":    "notice",
				"level":   notice.Level,
				"message": notice.Message,
			})
		}
	}
	if err != nil {
		log.Printf("[websocket] turn failed session=%s: %v", state.session.ID, err)
		h.sendError(conn, "turn failed")
		return
	}

	h.sendInfo(conn, state.session.ID, map[string]any{
		"type":    "user",
		"message": result.Exchange.UserMessage,
	})
	h.sendInfo(conn, state.session.ID, map[string]any{
		"type":    "assistant",
		"message": result.Exchange.AssistantMessage,
		"sources": result.Sources,
	})

	if state.ttsEnabled && result.Exchange.AudioBase64 != "" {
		h.sendInfo(conn, state.session.ID, map[string]any{
			"type":      "tts",
			"audioData": result.Exchange.AudioBase64,
			"isFinal":   true,
		})
	}
}

func (h *WebSocketHandler) handleConfigMessage(conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(conn, "invalid config payload")
		return
	}

	if cfg.TTSEnabled != nil {
		state.ttsEnabled = *cfg.TTSEnabled
	}

	log.Printf("[websocket] config applied session=%s tts=%v", state.session.ID, state.ttsEnabled)

	h.sendInfo(conn, state.session.ID, map[string]any{
		"type": "config",
		"tts":  state.ttsEnabled,
	})
}

func (h *WebSocketHandler) sendInfo(conn *websocket.Conn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write info failed: %v", err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
