package overlay

import (
	"context"

	"github.com/murmur-app/murmur/internal/overlay/geometry"
)

// Commands is the outbound command surface the overlay invokes in response
// to user actions. Calls are fire-and-forget from the overlay's perspective:
// errors are logged, never fatal, and the overlay does not wait for backend
// effects beyond its own optimistic flags.
type Commands interface {
	// CancelRecording aborts the in-progress recording or generation.
	CancelRecording(ctx context.Context) error
	// DismissAskAI ends the current Ask-AI session on the backend.
	DismissAskAI(ctx context.Context) error
	// StartNewConversation asks the backend to begin a fresh conversation.
	StartNewConversation(ctx context.Context) error
	// SaveWindowBounds persists the overlay window geometry.
	SaveWindowBounds(ctx context.Context, bounds geometry.Bounds) error
}

// NopCommands discards every command. Useful for tests and for running the
// overlay before a backend connects.
type NopCommands struct{}

func (NopCommands) CancelRecording(context.Context) error      { return nil }
func (NopCommands) DismissAskAI(context.Context) error         { return nil }
func (NopCommands) StartNewConversation(context.Context) error { return nil }
func (NopCommands) SaveWindowBounds(context.Context, geometry.Bounds) error {
	return nil
}
