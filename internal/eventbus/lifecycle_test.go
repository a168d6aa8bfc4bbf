package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeCloser struct{ closed atomic.Bool }

func (f *fakeCloser) Close() { f.closed.Store(true) }

func TestSubscriptionGroupCloseAll(t *testing.T) {
	var group SubscriptionGroup
	a := &fakeCloser{}
	b := &fakeCloser{}

	group.Add(a, b)
	group.Add(nil)
	group.Add((*fakeCloser)(nil))

	group.CloseAll()

	if !a.closed.Load() || !b.closed.Load() {
		t.Fatal("expected all tracked subscriptions closed")
	}

	// Second CloseAll must be a no-op.
	group.CloseAll()
}

func TestServiceLifecycleShutdown(t *testing.T) {
	var lc ServiceLifecycle
	lc.Start(context.Background())

	sub := &fakeCloser{}
	lc.AddSubscriptions(sub)

	started := make(chan struct{})
	lc.Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := lc.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !sub.closed.Load() {
		t.Fatal("expected subscription closed on shutdown")
	}
}

func TestWaitForWorkersContextDone(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1) // never released

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := WaitForWorkers(ctx, &wg); err == nil {
		t.Fatal("expected context error when workers never finish")
	}
	wg.Done()
}

func TestWaitForWorkersNil(t *testing.T) {
	if err := WaitForWorkers(context.Background(), nil); err != nil {
		t.Fatalf("nil wait group should succeed, got %v", err)
	}
}

func TestPolicyForFallbacks(t *testing.T) {
	if p := policyFor(TopicListeningInsight, nil); p.Strategy != StrategyOverflow {
		t.Fatalf("insight topic should default to overflow, got %q", p.Strategy)
	}
	if p := policyFor(TopicAudioLevels, nil); p.Strategy != StrategyDropOldest {
		t.Fatalf("audio levels should default to drop-oldest, got %q", p.Strategy)
	}
	if p := policyFor(Topic("unknown.topic"), nil); p.Strategy != defaultPolicy.Strategy {
		t.Fatalf("unknown topic should use default policy, got %q", p.Strategy)
	}

	overrides := map[Topic]DeliveryPolicy{
		TopicAudioLevels: {Strategy: StrategyDropNewest},
	}
	if p := policyFor(TopicAudioLevels, overrides); p.Strategy != StrategyDropNewest {
		t.Fatalf("override should win, got %q", p.Strategy)
	}
}
