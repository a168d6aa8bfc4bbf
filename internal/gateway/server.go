package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/murmur-app/murmur/internal/eventbus"
)

// Role tags a connected client as an event producer or a view consumer.
type Role string

const (
	RoleBackend  Role = "backend"
	RoleRenderer Role = "renderer"
)

// Actions is the user-action surface the gateway invokes when a renderer
// reports an interaction. Implemented by the overlay service.
type Actions interface {
	Cancel(ctx context.Context)
	Dismiss(ctx context.Context)
	Retry(ctx context.Context)
	NewConversation(ctx context.Context)
	CopyResponse(ctx context.Context)
}

type nopActions struct{}

func (nopActions) Cancel(context.Context)          {}
func (nopActions) Dismiss(context.Context)         {}
func (nopActions) Retry(context.Context)           {}
func (nopActions) NewConversation(context.Context) {}
func (nopActions) CopyResponse(context.Context)    {}

type outbound struct {
	role    Role
	payload []byte
}

// Server is the websocket gateway between the bus and the out-of-process
// peers. Backend producers push events that are decoded and republished on
// the bus; renderer clients receive view snapshots, report window geometry
// and forward user actions.
type Server struct {
	bus     *eventbus.Bus
	actions Actions
	logger  *log.Logger

	upgrader websocket.Upgrader

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	geoMu sync.RWMutex
	geo   windowPayload

	lifecycle eventbus.ServiceLifecycle
}

// ServerOption customises the gateway server.
type ServerOption func(*Server)

// WithLogger overrides the server logger.
func WithLogger(logger *log.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActions sets the user-action handler.
func WithActions(actions Actions) ServerOption {
	return func(s *Server) {
		if actions != nil {
			s.actions = actions
		}
	}
}

// WithOriginCheck installs an Origin header validator for upgrade requests.
// Requests without an Origin header are always accepted (local clients).
func WithOriginCheck(allowed func(string) bool) ServerOption {
	return func(s *Server) {
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if allowed != nil {
				return allowed(origin)
			}
			return false
		}
	}
}

// SetActions installs the user-action handler. Must be called before Start;
// it exists because the overlay service and the gateway reference each other
// (the overlay sends commands through the gateway, the gateway forwards
// renderer actions to the overlay).
func (s *Server) SetActions(actions Actions) {
	if actions != nil {
		s.actions = actions
	}
}

// NewServer creates a gateway attached to the given bus.
func NewServer(bus *eventbus.Bus, opts ...ServerOption) *Server {
	s := &Server{
		bus:        bus,
		actions:    nopActions{},
		logger:     log.Default(),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		geo:        windowPayload{Scale: 1},
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return r.Header.Get("Origin") == ""
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the hub loop and the view-snapshot fanout.
func (s *Server) Start(ctx context.Context) error {
	s.lifecycle.Start(ctx)

	viewSub := eventbus.SubscribeTo(s.bus, eventbus.Overlay.View,
		eventbus.WithSubscriptionName("gateway-view"))
	s.lifecycle.AddSubscriptions(viewSub)

	s.lifecycle.Go(func(ctx context.Context) {
		s.run(ctx)
	})
	s.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, viewSub, nil, s.broadcastView)
	})

	return nil
}

// Shutdown stops the hub and disconnects all clients.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.lifecycle.Shutdown(ctx)
}

// run is the hub loop: client registry and outbound fanout.
func (s *Server) run(ctx context.Context) {
	defer func() {
		for client := range s.clients {
			close(client.send)
			client.conn.Close()
			delete(s.clients, client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-s.register:
			s.clients[client] = true
			s.logger.Printf("[Gateway] %s client %s connected", client.role, client.id)

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.logger.Printf("[Gateway] %s client %s disconnected", client.role, client.id)
			}

		case msg := <-s.broadcast:
			for client := range s.clients {
				if client.role != msg.role {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Slow client, drop the frame.
				}
			}
		}
	}
}

// HandleWebSocket upgrades an HTTP request to a websocket connection. The
// role query parameter selects backend or renderer; unknown roles are
// rejected before the upgrade.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	role := Role(r.URL.Query().Get("role"))
	switch role {
	case RoleBackend, RoleRenderer:
	case "":
		role = RoleRenderer
	default:
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[Gateway] websocket upgrade: %v", err)
		return
	}

	client := newClient(s, conn, role)

	select {
	case s.register <- client:
	case <-s.lifecycle.Context().Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// broadcastView pushes one view snapshot to every renderer client.
func (s *Server) broadcastView(snap eventbus.ViewSnapshotEvent) {
	payload, err := encodeMessage(msgView, snap)
	if err != nil {
		s.logger.Printf("[Gateway] encode view snapshot: %v", err)
		return
	}
	s.enqueue(outbound{role: RoleRenderer, payload: payload})
}

// SendCommand pushes a named command to every backend client.
func (s *Server) SendCommand(name string) error {
	payload, err := encodeMessage(msgCommand, commandPayload{Name: name})
	if err != nil {
		return err
	}
	s.enqueue(outbound{role: RoleBackend, payload: payload})
	return nil
}

func (s *Server) enqueue(msg outbound) {
	select {
	case s.broadcast <- msg:
	default:
		s.logger.Printf("[Gateway] broadcast queue full, dropping %s frame", msg.role)
	}
}

// ---------------------------------------------------------------------------
// Window geometry cache
// ---------------------------------------------------------------------------
// The renderer reports raw geometry alongside each resize/move notification.
// The gateway caches the latest values so the debouncer can read them at
// persist time, which keeps the saved bounds current even when intermediate
// notifications were dropped.

// Size returns the last reported window size in raw pixels.
func (s *Server) Size() (float64, float64) {
	s.geoMu.RLock()
	defer s.geoMu.RUnlock()
	return s.geo.Width, s.geo.Height
}

// Position returns the last reported window position in raw pixels.
func (s *Server) Position() (float64, float64) {
	s.geoMu.RLock()
	defer s.geoMu.RUnlock()
	return s.geo.X, s.geo.Y
}

// ScaleFactor returns the last reported display scale factor.
func (s *Server) ScaleFactor() float64 {
	s.geoMu.RLock()
	defer s.geoMu.RUnlock()
	if s.geo.Scale <= 0 {
		return 1
	}
	return s.geo.Scale
}

func (s *Server) updateGeometry(p windowPayload) {
	s.geoMu.Lock()
	s.geo = p
	s.geoMu.Unlock()

	kind := eventbus.WindowResized
	if p.Kind == string(eventbus.WindowMoved) {
		kind = eventbus.WindowMoved
	}
	eventbus.Publish(context.Background(), s.bus, eventbus.Window.Changed,
		eventbus.SourceRenderer, eventbus.WindowChangedEvent{Kind: kind})
}

// ---------------------------------------------------------------------------
// Inbound event decoding
// ---------------------------------------------------------------------------

// handleBackendMessage decodes one producer frame and republishes it on the
// bus. Unknown types and malformed payloads are logged and skipped so one
// bad frame cannot wedge the stream.
func (s *Server) handleBackendMessage(msg Message) {
	ctx := context.Background()

	switch msg.Type {
	case msgShowOverlay:
		var p showPayload
		if !s.decode(msg, &p) {
			return
		}
		eventbus.Publish(ctx, s.bus, eventbus.Overlay.Show, eventbus.SourceBackend,
			eventbus.OverlayShowEvent{State: eventbus.OverlayState(p.State)})

	case msgHideOverlay:
		eventbus.Publish(ctx, s.bus, eventbus.Overlay.Hide, eventbus.SourceBackend,
			eventbus.OverlayHideEvent{})

	case msgMicLevel:
		var p micLevelPayload
		if !s.decode(msg, &p) {
			return
		}
		eventbus.Publish(ctx, s.bus, eventbus.Audio.Levels, eventbus.SourceBackend,
			eventbus.MicLevelEvent{Levels: p.Levels})

	case msgListeningState:
		var p listeningStatePayload
		if !s.decode(msg, &p) {
			return
		}
		eventbus.Publish(ctx, s.bus, eventbus.Listening.State, eventbus.SourceBackend,
			eventbus.ListeningStateEvent{
				Phase:     eventbus.ListeningPhase(p.State),
				SessionID: p.SessionID,
				Error:     p.Error,
			})

	case msgListeningSegment:
		var p segmentPayload
		if !s.decode(msg, &p) {
			return
		}
		eventbus.Publish(ctx, s.bus, eventbus.Listening.Segment, eventbus.SourceBackend,
			eventbus.ListeningSegmentEvent{
				SessionID:     p.SessionID,
				Transcription: p.Transcription,
				Timestamp:     p.Timestamp,
				SpeakerID:     p.SpeakerID,
				SpeakerLabel:  p.SpeakerLabel,
			})

	case msgListeningInsight:
		var p chunkPayload
		if !s.decode(msg, &p) {
			return
		}
		eventbus.Publish(ctx, s.bus, eventbus.Listening.Insight, eventbus.SourceBackend,
			eventbus.InsightChunkEvent{SessionID: p.SessionID, Chunk: p.Chunk, Done: p.Done})

	case msgAskAIState:
		var p askAIStatePayload
		if !s.decode(msg, &p) {
			return
		}
		ev := eventbus.AskAIStateEvent{
			Phase:    eventbus.AskAIPhase(p.State),
			Question: p.Question,
			Error:    p.Error,
		}
		if p.Conversation != nil {
			ev.Conversation = p.Conversation.toSnapshot()
		}
		eventbus.Publish(ctx, s.bus, eventbus.AskAI.State, eventbus.SourceBackend, ev)

	case msgAskAIResponse:
		var p chunkPayload
		if !s.decode(msg, &p) {
			return
		}
		eventbus.Publish(ctx, s.bus, eventbus.AskAI.Response, eventbus.SourceBackend,
			eventbus.ResponseChunkEvent{Chunk: p.Chunk, Done: p.Done})

	default:
		s.logger.Printf("[Gateway] unknown backend message type %q, skipped", msg.Type)
	}
}

// handleRendererMessage applies one renderer frame: geometry updates or
// user actions.
func (s *Server) handleRendererMessage(msg Message) {
	ctx := context.Background()

	switch msg.Type {
	case msgWindow:
		var p windowPayload
		if !s.decode(msg, &p) {
			return
		}
		s.updateGeometry(p)

	case msgAction:
		var p actionPayload
		if !s.decode(msg, &p) {
			return
		}
		switch p.Action {
		case actionCancel:
			s.actions.Cancel(ctx)
		case actionDismiss:
			s.actions.Dismiss(ctx)
		case actionRetry:
			s.actions.Retry(ctx)
		case actionNewChat:
			s.actions.NewConversation(ctx)
		case actionCopy:
			s.actions.CopyResponse(ctx)
		case actionHide:
			eventbus.Publish(ctx, s.bus, eventbus.Overlay.Hide, eventbus.SourceRenderer,
				eventbus.OverlayHideEvent{})
		default:
			s.logger.Printf("[Gateway] unknown renderer action %q, skipped", p.Action)
		}

	default:
		s.logger.Printf("[Gateway] unknown renderer message type %q, skipped", msg.Type)
	}
}

func (s *Server) decode(msg Message, out any) bool {
	if err := json.Unmarshal(msg.Data, out); err != nil {
		s.logger.Printf("[Gateway] malformed %q payload: %v", msg.Type, err)
		return false
	}
	return true
}
