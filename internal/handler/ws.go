package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/naveenkul/pocket-soul/internal/registry"
	"github.com/naveenkul/pocket-soul/internal/service/conversation"
	"github.com/naveenkul/pocket-soul/internal/service/pipeline"
)

// WSHandler owns the bidirectional channel carrying conversation turns.
type WSHandler struct {
	registry      *registry.Registry
	conversations *conversation.Store
	pipeline      *pipeline.Pipeline
	upgrader      websocket.Upgrader
	log           zerolog.Logger
}

// NewWSHandler creates the WebSocket handler.
func NewWSHandler(reg *registry.Registry, conversations *conversation.Store, pipe *pipeline.Pipeline, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry:      reg,
		conversations: conversations,
		pipeline:      pipe,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type identifyMessage struct {
	Role string `json:"role"`
}

type audioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	IsFinal   bool   `json:"isFinal"`
}

type textMessage struct {
	Text string `json:"text"`
}

type connectionState struct {
	audioFormat string
	buffer      bytes.Buffer
}

func (h *WSHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session, err := h.conversations.Create(ctx, "")
	if err != nil {
		h.log.Error().Err(err).Msg("session create failed")
		return
	}
	defer h.conversations.Remove(session.ID)

	conn := h.registry.Add(session.ID)
	defer h.registry.Remove(conn.ID)

	sess := pipeline.NewSession(session.ID, conn.ID)
	state := &connectionState{}

	h.log.Info().
		Str("session", session.ID).
		Str("connection", conn.ID).
		Msg("websocket connected")

	go h.writeLoop(ctx, ws, conn)

	_ = h.registry.Send(conn.ID, registry.NewEvent("connected", session.ID, map[string]any{
		"connectionId": conn.ID,
	}))

	ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("session", session.ID).Msg("read error")
			}
			return
		}

		ws.SetReadDeadline(time.Now().Add(60 * time.Second))

		if msg.SessionID != "" && msg.SessionID != session.ID {
			h.sendError(conn.ID, session.ID, "session mismatch")
			continue
		}

		h.handleMessage(ctx, conn, sess, state, &msg)
	}
}

// writeLoop is the single writer for the socket: registry events and pings.
func (h *WSHandler) writeLoop(ctx context.Context, ws *websocket.Conn, conn *registry.Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done:
			return
		case event := <-conn.Events:
			if err := ws.WriteJSON(event); err != nil {
				h.log.Debug().Err(err).Str("connection", conn.ID).Msg("write failed")
				return
			}
		case <-ticker.C:
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleMessage(ctx context.Context, conn *registry.Connection, sess *pipeline.Session, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "identify":
		h.handleIdentify(conn, sess, msg.Data)
	case "audio":
		h.handleAudio(ctx, conn, sess, state, msg.Data)
	case "text":
		h.handleText(ctx, conn, sess, msg.Data)
	case "interrupt":
		h.pipeline.Interrupt(sess)
	case "reset":
		if err := h.pipeline.Reset(ctx, sess); err != nil {
			h.sendError(conn.ID, sess.ID, err.Error())
		}
	default:
		h.sendError(conn.ID, sess.ID, "unsupported message type: "+msg.Type)
	}
}

func (h *WSHandler) handleIdentify(conn *registry.Connection, sess *pipeline.Session, raw json.RawMessage) {
	var payload identifyMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.sendError(conn.ID, sess.ID, "invalid identify payload")
		return
	}

	if err := h.registry.Identify(conn.ID, registry.Role(payload.Role)); err != nil {
		h.sendError(conn.ID, sess.ID, err.Error())
		return
	}

	_ = h.registry.Send(conn.ID, registry.NewEvent("identified", sess.ID, map[string]string{
		"role": payload.Role,
	}))
}

// submitAllowed gates turn submission to identified initiators.
func (h *WSHandler) submitAllowed(conn *registry.Connection, sess *pipeline.Session) bool {
	role, ok := h.registry.RoleOf(conn.ID)
	if !ok || role == registry.RoleUnknown {
		h.sendError(conn.ID, sess.ID, "identify before submitting input")
		return false
	}
	if role == registry.RoleViewer {
		h.sendError(conn.ID, sess.ID, "viewer connections cannot submit input")
		return false
	}
	return true
}

func (h *WSHandler) handleAudio(ctx context.Context, conn *registry.Connection, sess *pipeline.Session, state *connectionState, raw json.RawMessage) {
	if !h.submitAllowed(conn, sess) {
		return
	}

	var audio audioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		h.sendError(conn.ID, sess.ID, "invalid audio payload")
		return
	}

	if len(audio.AudioData) > 0 {
		state.buffer.Write(audio.AudioData)
	}
	if audio.Format != "" {
		state.audioFormat = audio.Format
	}

	if !audio.IsFinal {
		return
	}

	buffered := make([]byte, state.buffer.Len())
	copy(buffered, state.buffer.Bytes())
	state.buffer.Reset()

	format := state.audioFormat
	if format == "" {
		format = "wav"
	}

	go h.pipeline.SubmitAudio(ctx, sess, buffered, format)
}

func (h *WSHandler) handleText(ctx context.Context, conn *registry.Connection, sess *pipeline.Session, raw json.RawMessage) {
	if !h.submitAllowed(conn, sess) {
		return
	}

	var payload textMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.sendError(conn.ID, sess.ID, "invalid text payload")
		return
	}

	go h.pipeline.SubmitText(ctx, sess, payload.Text)
}

func (h *WSHandler) sendError(connID, sessionID, message string) {
	_ = h.registry.Send(connID, registry.NewEvent(pipeline.EventError, sessionID, map[string]string{
		"message": message,
	}))
}
