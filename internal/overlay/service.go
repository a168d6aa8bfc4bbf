package overlay

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/murmur-app/murmur/internal/eventbus"
)

// DefaultDismissDelay is how long an unacknowledged Ask-AI error stays on
// screen before the overlay dismisses itself.
const DefaultDismissDelay = 8 * time.Second

// Service is the overlay orchestrator. It consumes the backend event topics,
// applies them to the store, recomputes the auto-dismiss timer on every
// state or conversation change, and publishes a fresh view snapshot after
// each mutation. One consume goroutine runs per topic so each channel is
// processed strictly in publish order; the mutex serializes all writes.
type Service struct {
	bus      *eventbus.Bus
	commands Commands
	logger   *log.Logger

	mu    sync.Mutex
	store *Store

	dismiss      resettableTimer
	dismissDelay time.Duration

	lifecycle eventbus.ServiceLifecycle
}

// Option customises the overlay service.
type Option func(*Service)

// WithLogger overrides the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCommands sets the outbound command surface.
func WithCommands(commands Commands) Option {
	return func(s *Service) {
		if commands != nil {
			s.commands = commands
		}
	}
}

// WithDismissDelay overrides the auto-dismiss delay, mainly for tests.
func WithDismissDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dismissDelay = d
		}
	}
}

// NewService creates the overlay service attached to the given bus.
func NewService(bus *eventbus.Bus, opts ...Option) *Service {
	s := &Service{
		bus:          bus,
		commands:     NopCommands{},
		logger:       log.Default(),
		store:        NewStore(),
		dismissDelay: DefaultDismissDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to every consumed topic and launches the consume loops.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycle.Start(ctx)

	showSub := eventbus.SubscribeTo(s.bus, eventbus.Overlay.Show,
		eventbus.WithSubscriptionName("overlay-show"))
	hideSub := eventbus.SubscribeTo(s.bus, eventbus.Overlay.Hide,
		eventbus.WithSubscriptionName("overlay-hide"))
	levelsSub := eventbus.SubscribeTo(s.bus, eventbus.Audio.Levels,
		eventbus.WithSubscriptionName("overlay-levels"))
	listenStateSub := eventbus.SubscribeTo(s.bus, eventbus.Listening.State,
		eventbus.WithSubscriptionName("overlay-listening-state"))
	segmentSub := eventbus.SubscribeTo(s.bus, eventbus.Listening.Segment,
		eventbus.WithSubscriptionName("overlay-segment"))
	insightSub := eventbus.SubscribeTo(s.bus, eventbus.Listening.Insight,
		eventbus.WithSubscriptionName("overlay-insight"))
	askStateSub := eventbus.SubscribeTo(s.bus, eventbus.AskAI.State,
		eventbus.WithSubscriptionName("overlay-askai-state"))
	responseSub := eventbus.SubscribeTo(s.bus, eventbus.AskAI.Response,
		eventbus.WithSubscriptionName("overlay-response"))

	s.lifecycle.AddSubscriptions(showSub, hideSub, levelsSub, listenStateSub,
		segmentSub, insightSub, askStateSub, responseSub)

	s.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, showSub, nil, s.handleShow)
	})
	s.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, hideSub, nil, s.handleHide)
	})
	s.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, levelsSub, nil, s.handleLevels)
	})
	s.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, listenStateSub, nil, s.handleListeningState)
	})
	s.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, segmentSub, nil, s.handleSegment)
	})
	s.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, insightSub, nil, s.handleInsight)
	})
	s.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, askStateSub, nil, s.handleAskAIState)
	})
	s.lifecycle.Go(func(ctx context.Context) {
		eventbus.Consume(ctx, responseSub, nil, s.handleResponse)
	})

	return nil
}

// Shutdown cancels timers, closes subscriptions and waits for the consume
// loops to drain.
func (s *Service) Shutdown(ctx context.Context) error {
	s.dismiss.Cancel()
	return s.lifecycle.Shutdown(ctx)
}

// Snapshot returns the current render state.
func (s *Service) Snapshot() eventbus.ViewSnapshotEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// ---------------------------------------------------------------------------
// Event handlers
// ---------------------------------------------------------------------------

func (s *Service) handleShow(ev eventbus.OverlayShowEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ev.State.Valid() {
		s.logger.Printf("[Overlay] ignoring show with unknown state %q", ev.State)
	}
	s.store.Show(ev.State)
	s.afterMutation()
}

func (s *Service) handleHide(eventbus.OverlayHideEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Hide()
	s.afterMutation()
}

func (s *Service) handleLevels(ev eventbus.MicLevelEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.UpdateLevels(ev.Levels)
	s.publishView()
}

func (s *Service) handleListeningState(ev eventbus.ListeningStateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Phase {
	case eventbus.ListeningActive:
		if ev.SessionID == "" {
			s.logger.Printf("[Overlay] listening event without session id, ignored")
			return
		}
		s.store.StartListening(ev.SessionID, time.Now().UTC())
	case eventbus.ListeningProcessing:
		s.store.ListeningProcessing()
	case eventbus.ListeningIdle:
		s.store.ListeningIdle()
	case eventbus.ListeningError:
		// No dedicated UI state for listening errors; log and move on.
		s.logger.Printf("[Overlay] active listening error: %s", ev.Error)
		return
	default:
		s.logger.Printf("[Overlay] unknown listening phase %q", ev.Phase)
		return
	}
	s.afterMutation()
}

func (s *Service) handleSegment(ev eventbus.ListeningSegmentEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.AddSegment(ev) {
		return
	}
	s.publishView()
}

func (s *Service) handleInsight(ev eventbus.InsightChunkEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.AppendInsight(ev.Chunk, ev.Done) {
		return
	}
	s.publishView()
}

func (s *Service) handleAskAIState(ev eventbus.AskAIStateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.ApplyAskAIState(ev)
	s.afterMutation()
}

func (s *Service) handleResponse(ev eventbus.ResponseChunkEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.AppendResponse(ev.Chunk, ev.Done)
	s.publishView()
}

// ---------------------------------------------------------------------------
// User actions
// ---------------------------------------------------------------------------

// Cancel aborts the in-progress recording or generation. Local state is not
// touched; the backend reports the resulting state through its own events.
func (s *Service) Cancel(ctx context.Context) {
	if err := s.commands.CancelRecording(ctx); err != nil {
		s.logger.Printf("[Overlay] cancel recording: %v", err)
	}
}

// Dismiss closes the Ask-AI session, locally and on the backend.
func (s *Service) Dismiss(ctx context.Context) {
	s.mu.Lock()
	s.store.Dismiss()
	s.afterMutation()
	s.mu.Unlock()

	if err := s.commands.DismissAskAI(ctx); err != nil {
		s.logger.Printf("[Overlay] dismiss session: %v", err)
	}
}

// Retry clears the current error and releases the session. The request is
// not re-issued; the user triggers the next attempt themselves.
func (s *Service) Retry(ctx context.Context) {
	s.mu.Lock()
	hadTurns := s.store.Conversation().CompletedTurns() > 0
	s.store.ClearError()
	s.afterMutation()
	s.mu.Unlock()

	if !hadTurns {
		if err := s.commands.DismissAskAI(ctx); err != nil {
			s.logger.Printf("[Overlay] release session: %v", err)
		}
	}
}

// NewConversation resets the conversation locally and asks the backend to
// begin a fresh one.
func (s *Service) NewConversation(ctx context.Context) {
	s.mu.Lock()
	s.store.ResetConversation()
	s.afterMutation()
	s.mu.Unlock()

	if err := s.commands.StartNewConversation(ctx); err != nil {
		s.logger.Printf("[Overlay] start new conversation: %v", err)
	}
}

// CopyResponse flips the optimistic copied flag shown next to the response.
// The clipboard write itself happens in the renderer.
func (s *Service) CopyResponse(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.MarkCopied(true)
	s.publishView()
}

// ---------------------------------------------------------------------------
// Auto-dismiss
// ---------------------------------------------------------------------------

// afterMutation recomputes the auto-dismiss timer and publishes the view.
// Must run with the mutex held. The timer is recomputed from scratch on
// every state or conversation change: armed only while a visible overlay
// shows AskAIError with zero completed turns, cancelled otherwise.
func (s *Service) afterMutation() {
	if s.store.Visible() &&
		s.store.State() == eventbus.StateAskAIError &&
		s.store.Conversation().CompletedTurns() == 0 {
		s.dismiss.Arm(s.dismissDelay, s.autoDismiss)
	} else {
		s.dismiss.Cancel()
	}
	s.publishView()
}

// autoDismiss fires on the timer goroutine and takes the same path as an
// explicit user dismissal. Under the lock it first checks that its arming
// generation is still current, so a fire that was parked on the mutex while
// the timer was recomputed backs off instead of dismissing against the old
// deadline. Applicability is then re-checked as well.
func (s *Service) autoDismiss(gen uint64) {
	s.mu.Lock()
	if !s.dismiss.Current(gen) {
		s.mu.Unlock()
		return
	}
	if !s.store.Visible() ||
		s.store.State() != eventbus.StateAskAIError ||
		s.store.Conversation().CompletedTurns() > 0 {
		s.mu.Unlock()
		return
	}
	s.store.Dismiss()
	s.afterMutation()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.commands.DismissAskAI(ctx); err != nil {
		s.logger.Printf("[Overlay] auto dismiss session: %v", err)
	}
}

// publishView emits the current snapshot. Must run with the mutex held.
func (s *Service) publishView() {
	eventbus.Publish(context.Background(), s.bus, eventbus.Overlay.View,
		eventbus.SourceOverlay, s.store.Snapshot())
}
