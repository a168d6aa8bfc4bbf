package eventbus

import (
	"context"
	"sync"
)

// Consume drains sub into handler, payload only. Each overlay topic gets one
// Consume loop so events on a channel apply strictly in publish order. The
// loop ends on context cancellation or when the subscription closes; a
// non-nil wg is marked done on return.
func Consume[T any](ctx context.Context, sub *TypedSubscription[T], wg *sync.WaitGroup, handler func(T)) {
	ConsumeEnvelope(ctx, sub, wg, func(env TypedEnvelope[T]) {
		handler(env.Payload)
	})
}

// ConsumeEnvelope is Consume for handlers that need envelope metadata
// (source, timestamp, correlation id) in addition to the payload.
func ConsumeEnvelope[T any](ctx context.Context, sub *TypedSubscription[T], wg *sync.WaitGroup, handler func(TypedEnvelope[T])) {
	if wg != nil {
		defer wg.Done()
	}
	if sub == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C():
			if !ok {
				return
			}
			handler(env)
		}
	}
}
