package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Role states what a connection is allowed to do. Until a connection
// identifies itself its role is unknown and it receives no broadcasts.
type Role string

const (
	RoleUnknown   Role = "unknown"
	RoleInitiator Role = "initiator"
	RoleViewer    Role = "viewer"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrRoleAlreadySet     = errors.New("connection role already set")
	ErrInvalidRole        = errors.New("invalid connection role")
)

// Event is the wire envelope delivered to connections.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewEvent stamps an envelope with the current time.
func NewEvent(eventType, sessionID string, data any) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// Connection is one live channel to a participant. Events are consumed from
// the Events channel by the transport's write loop.
type Connection struct {
	ID        string
	SessionID string
	Events    chan Event
	Done      chan struct{}

	role Role

	framesSent    atomic.Int64
	framesDropped atomic.Int64
	lastDelivery  atomic.Int64 // unix nanos
}

func (c *Connection) FramesSent() int64    { return c.framesSent.Load() }
func (c *Connection) FramesDropped() int64 { return c.framesDropped.Load() }

// LastDelivery reports when the connection last accepted an event.
func (c *Connection) LastDelivery() time.Time {
	return time.Unix(0, c.lastDelivery.Load())
}

const eventBufferSize = 64

// Registry tracks every live connection, its role, and delivers targeted or
// broadcast events.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	log   zerolog.Logger
}

// New creates an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		log:   log.With().Str("component", "registry").Logger(),
	}
}

// Add registers a new connection with an unknown role.
func (r *Registry) Add(sessionID string) *Connection {
	conn := &Connection{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Events:    make(chan Event, eventBufferSize),
		Done:      make(chan struct{}),
		role:      RoleUnknown,
	}

	r.mu.Lock()
	r.conns[conn.ID] = conn
	count := len(r.conns)
	r.mu.Unlock()

	r.log.Info().
		Str("connection", conn.ID).
		Str("session", sessionID).
		Int("connections", count).
		Msg("connection registered")
	return conn
}

// Remove drops a connection and closes its done channel.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	count := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}
	close(conn.Done)
	r.log.Info().
		Str("connection", id).
		Int("connections", count).
		Msg("connection removed")
}

// Identify sets a connection's role exactly once.
func (r *Registry) Identify(id string, role Role) error {
	if role != RoleInitiator && role != RoleViewer {
		return ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok {
		return ErrConnectionNotFound
	}
	if conn.role != RoleUnknown {
		return ErrRoleAlreadySet
	}
	conn.role = role

	r.log.Info().
		Str("connection", id).
		Str("role", string(role)).
		Msg("connection identified")
	return nil
}

// RoleOf reports a connection's current role.
func (r *Registry) RoleOf(id string) (Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	if !ok {
		return RoleUnknown, false
	}
	return conn.role, true
}

// Send delivers an event to one connection.
func (r *Registry) Send(id string, event Event) error {
	r.mu.RLock()
	conn, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return ErrConnectionNotFound
	}
	r.deliver(conn, event)
	return nil
}

// Multicast delivers the complete event to the session's originating
// connection and the display event to every identified viewer.
func (r *Registry) Multicast(sessionID string, complete, display Event) {
	r.mu.RLock()
	targets := make([]*Connection, 0, len(r.conns))
	var origin *Connection
	for _, conn := range r.conns {
		if conn.SessionID == sessionID && conn.role == RoleInitiator {
			origin = conn
			continue
		}
		if conn.role == RoleViewer {
			targets = append(targets, conn)
		}
	}
	r.mu.RUnlock()

	if origin != nil {
		r.deliver(origin, complete)
	}
	for _, conn := range targets {
		r.deliver(conn, display)
	}
}

// deliver never blocks the pipeline: a connection that cannot keep up has
// events dropped with a warning.
func (r *Registry) deliver(conn *Connection, event Event) {
	select {
	case conn.Events <- event:
		conn.framesSent.Add(1)
		conn.lastDelivery.Store(time.Now().UnixNano())
	default:
		conn.framesDropped.Add(1)
		r.log.Warn().
			Str("connection", conn.ID).
			Str("type", event.Type).
			Msg("connection event buffer full, dropping event")
	}
}

// Count reports how many connections are live.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
