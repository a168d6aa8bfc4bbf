package overlay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/murmur-app/murmur/internal/eventbus"
	"github.com/murmur-app/murmur/internal/overlay/geometry"
)

type recordingCommands struct {
	mu        sync.Mutex
	cancels   int
	dismisses int
	newConvs  int
	bounds    []geometry.Bounds
}

func (c *recordingCommands) CancelRecording(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels++
	return nil
}

func (c *recordingCommands) DismissAskAI(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismisses++
	return nil
}

func (c *recordingCommands) StartNewConversation(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.newConvs++
	return nil
}

func (c *recordingCommands) SaveWindowBounds(_ context.Context, b geometry.Bounds) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bounds = append(c.bounds, b)
	return nil
}

func (c *recordingCommands) dismissCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dismisses
}

func startService(t *testing.T, opts ...Option) (*Service, *eventbus.Bus) {
	t.Helper()

	bus := eventbus.New()
	svc := NewService(bus, opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := svc.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
		bus.Shutdown()
	})
	return svc, bus
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestServiceResponseStreamScenario(t *testing.T) {
	svc, bus := startService(t)
	ctx := context.Background()

	eventbus.Publish(ctx, bus, eventbus.Overlay.Show, eventbus.SourceBackend,
		eventbus.OverlayShowEvent{State: eventbus.StateAskAIRecording})

	waitFor(t, func() bool { return svc.Snapshot().Visible },
		"overlay never became visible")

	eventbus.Publish(ctx, bus, eventbus.AskAI.Response, eventbus.SourceBackend,
		eventbus.ResponseChunkEvent{Chunk: "Hel"})
	eventbus.Publish(ctx, bus, eventbus.AskAI.Response, eventbus.SourceBackend,
		eventbus.ResponseChunkEvent{Chunk: "lo"})
	eventbus.Publish(ctx, bus, eventbus.AskAI.Response, eventbus.SourceBackend,
		eventbus.ResponseChunkEvent{Done: true})

	waitFor(t, func() bool {
		snap := svc.Snapshot()
		return snap.Response == "Hello" && !snap.Streaming
	}, "response stream did not settle to Hello")

	if snap := svc.Snapshot(); snap.State != eventbus.StateAskAIRecording {
		t.Fatalf("response chunks must not change state, got %q", snap.State)
	}
}

func TestServiceListeningSegmentScenario(t *testing.T) {
	svc, bus := startService(t)
	ctx := context.Background()

	eventbus.Publish(ctx, bus, eventbus.Listening.State, eventbus.SourceBackend,
		eventbus.ListeningStateEvent{Phase: eventbus.ListeningActive, SessionID: "s1"})

	waitFor(t, func() bool {
		return svc.Snapshot().State == eventbus.StateActiveListening
	}, "listening state never applied")

	eventbus.Publish(ctx, bus, eventbus.Listening.Segment, eventbus.SourceBackend,
		eventbus.ListeningSegmentEvent{SessionID: "s1", Transcription: "one", Timestamp: time.Unix(100, 0)})
	eventbus.Publish(ctx, bus, eventbus.Listening.Segment, eventbus.SourceBackend,
		eventbus.ListeningSegmentEvent{SessionID: "s1", Transcription: "two", Timestamp: time.Unix(200, 0)})

	waitFor(t, func() bool { return len(svc.Snapshot().Insights) == 2 },
		"expected two insight placeholders")

	snap := svc.Snapshot()
	streaming := 0
	for _, in := range snap.Insights {
		if in.Streaming {
			streaming++
		}
	}
	if streaming != 1 {
		t.Fatalf("expected exactly one streaming insight, got %d", streaming)
	}
	if snap.Transcription != "two" {
		t.Fatalf("expected latest transcription, got %q", snap.Transcription)
	}

	eventbus.Publish(ctx, bus, eventbus.Listening.State, eventbus.SourceBackend,
		eventbus.ListeningStateEvent{Phase: eventbus.ListeningIdle})

	waitFor(t, func() bool {
		snap := svc.Snapshot()
		return !snap.Visible && len(snap.Insights) == 0
	}, "idle should hide the overlay and discard the session")
}

func TestServiceListeningErrorIsLogOnly(t *testing.T) {
	svc, bus := startService(t)
	ctx := context.Background()

	eventbus.Publish(ctx, bus, eventbus.Listening.State, eventbus.SourceBackend,
		eventbus.ListeningStateEvent{Phase: eventbus.ListeningActive, SessionID: "s1"})
	waitFor(t, func() bool {
		return svc.Snapshot().State == eventbus.StateActiveListening
	}, "listening state never applied")

	eventbus.Publish(ctx, bus, eventbus.Listening.State, eventbus.SourceBackend,
		eventbus.ListeningStateEvent{Phase: eventbus.ListeningError, Error: "stream broke"})

	// Push one more event through the same channel so we know the error
	// event was processed before asserting nothing changed.
	eventbus.Publish(ctx, bus, eventbus.Listening.State, eventbus.SourceBackend,
		eventbus.ListeningStateEvent{Phase: eventbus.ListeningProcessing})
	waitFor(t, func() bool {
		return svc.Snapshot().State == eventbus.StateActiveListeningProcessing
	}, "processing state never applied")

	if snap := svc.Snapshot(); snap.Error != nil {
		t.Fatalf("listening errors must not surface in the view: %+v", snap.Error)
	}
}

func TestServiceAutoDismissWithoutTurns(t *testing.T) {
	cmds := &recordingCommands{}
	svc, bus := startService(t,
		WithCommands(cmds),
		WithDismissDelay(50*time.Millisecond))
	ctx := context.Background()

	eventbus.Publish(ctx, bus, eventbus.Overlay.Show, eventbus.SourceBackend,
		eventbus.OverlayShowEvent{State: eventbus.StateAskAIRecording})
	waitFor(t, func() bool { return svc.Snapshot().Visible },
		"overlay never became visible")

	eventbus.Publish(ctx, bus, eventbus.AskAI.State, eventbus.SourceBackend,
		eventbus.AskAIStateEvent{Phase: eventbus.AskAIError, Error: strptr("request timed out")})

	waitFor(t, func() bool {
		snap := svc.Snapshot()
		return !snap.Visible && cmds.dismissCount() == 1
	}, "expected exactly one auto dismissal")

	// No second dismissal may fire.
	time.Sleep(150 * time.Millisecond)
	if got := cmds.dismissCount(); got != 1 {
		t.Fatalf("expected 1 dismissal, got %d", got)
	}
}

func TestServiceAutoDismissSuppressedByTurns(t *testing.T) {
	cmds := &recordingCommands{}
	svc, bus := startService(t,
		WithCommands(cmds),
		WithDismissDelay(30*time.Millisecond))
	ctx := context.Background()

	eventbus.Publish(ctx, bus, eventbus.Overlay.Show, eventbus.SourceBackend,
		eventbus.OverlayShowEvent{State: eventbus.StateAskAIRecording})
	waitFor(t, func() bool { return svc.Snapshot().Visible },
		"overlay never became visible")

	eventbus.Publish(ctx, bus, eventbus.AskAI.State, eventbus.SourceBackend,
		eventbus.AskAIStateEvent{
			Phase: eventbus.AskAIError,
			Error: strptr("request timed out"),
			Conversation: &eventbus.ConversationSnapshot{
				ID:    "c1",
				Turns: []eventbus.TurnSnapshot{{ID: "t1", Question: "q", Response: "r", At: time.Now()}},
			},
		})

	waitFor(t, func() bool {
		return svc.Snapshot().State == eventbus.StateAskAIError
	}, "error state never applied")

	time.Sleep(120 * time.Millisecond)

	if got := cmds.dismissCount(); got != 0 {
		t.Fatalf("auto dismiss must be suppressed with completed turns, got %d dismissals", got)
	}
	if !svc.Snapshot().CanNewChat {
		t.Fatal("completed turns should unlock the new-conversation affordance")
	}
}

func TestServiceAutoDismissRecomputedOnStateChange(t *testing.T) {
	cmds := &recordingCommands{}
	svc, bus := startService(t,
		WithCommands(cmds),
		WithDismissDelay(80*time.Millisecond))
	ctx := context.Background()

	eventbus.Publish(ctx, bus, eventbus.Overlay.Show, eventbus.SourceBackend,
		eventbus.OverlayShowEvent{State: eventbus.StateAskAIRecording})
	waitFor(t, func() bool { return svc.Snapshot().Visible },
		"overlay never became visible")

	eventbus.Publish(ctx, bus, eventbus.AskAI.State, eventbus.SourceBackend,
		eventbus.AskAIStateEvent{Phase: eventbus.AskAIError, Error: strptr("busy")})

	waitFor(t, func() bool {
		return svc.Snapshot().State == eventbus.StateAskAIError
	}, "error state never applied")

	// Leaving the error state must cancel the pending dismissal.
	eventbus.Publish(ctx, bus, eventbus.AskAI.State, eventbus.SourceBackend,
		eventbus.AskAIStateEvent{Phase: eventbus.AskAIGenerating})

	waitFor(t, func() bool {
		return svc.Snapshot().State == eventbus.StateAskAIGenerating
	}, "generating state never applied")

	time.Sleep(200 * time.Millisecond)
	if got := cmds.dismissCount(); got != 0 {
		t.Fatalf("dismissal should have been cancelled, got %d", got)
	}
}

func TestServiceUserActions(t *testing.T) {
	cmds := &recordingCommands{}
	svc, bus := startService(t, WithCommands(cmds))
	ctx := context.Background()

	eventbus.Publish(ctx, bus, eventbus.AskAI.State, eventbus.SourceBackend,
		eventbus.AskAIStateEvent{
			Phase: eventbus.AskAIComplete,
			Conversation: &eventbus.ConversationSnapshot{
				ID:    "c1",
				Turns: []eventbus.TurnSnapshot{{ID: "t1", Question: "q", Response: "r", At: time.Now()}},
			},
		})

	waitFor(t, func() bool { return svc.Snapshot().CanNewChat },
		"conversation never applied")

	svc.CopyResponse(ctx)
	if !svc.Snapshot().Copied {
		t.Fatal("copy should set the optimistic flag")
	}

	svc.NewConversation(ctx)
	if snap := svc.Snapshot(); snap.CanNewChat || snap.Copied {
		t.Fatalf("new conversation should reset conversation state: %+v", snap)
	}

	svc.Cancel(ctx)
	svc.Dismiss(ctx)

	cmds.mu.Lock()
	defer cmds.mu.Unlock()
	if cmds.newConvs != 1 || cmds.cancels != 1 || cmds.dismisses != 1 {
		t.Fatalf("unexpected command counts: %+v", cmds)
	}
}

func TestServiceRetryClearsErrorWithoutReissue(t *testing.T) {
	cmds := &recordingCommands{}
	svc, bus := startService(t, WithCommands(cmds))
	ctx := context.Background()

	eventbus.Publish(ctx, bus, eventbus.Overlay.Show, eventbus.SourceBackend,
		eventbus.OverlayShowEvent{State: eventbus.StateAskAIRecording})
	waitFor(t, func() bool { return svc.Snapshot().Visible },
		"overlay never became visible")

	eventbus.Publish(ctx, bus, eventbus.AskAI.State, eventbus.SourceBackend,
		eventbus.AskAIStateEvent{Phase: eventbus.AskAIError, Error: strptr("no speech detected")})

	waitFor(t, func() bool { return svc.Snapshot().Error != nil },
		"error never applied")

	svc.Retry(ctx)

	snap := svc.Snapshot()
	if snap.Error != nil {
		t.Fatal("retry should clear the error")
	}
	if snap.Visible {
		t.Fatal("retry with no turns should release the session")
	}

	cmds.mu.Lock()
	defer cmds.mu.Unlock()
	if cmds.dismisses != 1 {
		t.Fatalf("expected session release, got %d dismissals", cmds.dismisses)
	}
	if cmds.cancels != 0 || cmds.newConvs != 0 {
		t.Fatal("retry must not re-issue any request")
	}
}

func TestServiceHideIsResumable(t *testing.T) {
	svc, bus := startService(t)
	ctx := context.Background()

	eventbus.Publish(ctx, bus, eventbus.Overlay.Show, eventbus.SourceBackend,
		eventbus.OverlayShowEvent{State: eventbus.StateTranscribing})
	waitFor(t, func() bool { return svc.Snapshot().Visible },
		"overlay never became visible")

	eventbus.Publish(ctx, bus, eventbus.Overlay.Hide, eventbus.SourceBackend,
		eventbus.OverlayHideEvent{})
	waitFor(t, func() bool { return !svc.Snapshot().Visible },
		"overlay never hid")

	if snap := svc.Snapshot(); snap.State != eventbus.StateTranscribing {
		t.Fatalf("hide must preserve state, got %q", snap.State)
	}
}

func TestServicePublishesViewSnapshots(t *testing.T) {
	bus := eventbus.New()
	viewSub := eventbus.SubscribeTo(bus, eventbus.Overlay.View)
	defer viewSub.Close()

	svc := NewService(bus)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
		bus.Shutdown()
	}()

	eventbus.Publish(context.Background(), bus, eventbus.Overlay.Show, eventbus.SourceBackend,
		eventbus.OverlayShowEvent{State: eventbus.StateRecording})

	select {
	case env := <-viewSub.C():
		if !env.Payload.Visible || env.Payload.State != eventbus.StateRecording {
			t.Fatalf("unexpected view snapshot: %+v", env.Payload)
		}
		if env.Payload.Mode != eventbus.ViewBar {
			t.Fatalf("expected bar mode, got %q", env.Payload.Mode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no view snapshot published after mutation")
	}
}
