package gateway

import "context"

// BackendCommands forwards overlay commands to connected backend producers
// as JSON command frames. Delivery is best effort; a backend that is not
// connected simply misses the command, matching the fire-and-forget
// contract of the overlay's command surface.
type BackendCommands struct {
	server *Server
}

// Commands returns the backend command forwarder for this gateway.
func (s *Server) Commands() *BackendCommands {
	return &BackendCommands{server: s}
}

// CancelRecording asks the backend to abort the in-progress recording.
func (c *BackendCommands) CancelRecording(context.Context) error {
	return c.server.SendCommand(commandCancelRecording)
}

// DismissAskAI asks the backend to end the current Ask-AI session.
func (c *BackendCommands) DismissAskAI(context.Context) error {
	return c.server.SendCommand(commandDismissAskAI)
}

// StartNewConversation asks the backend to begin a fresh conversation.
func (c *BackendCommands) StartNewConversation(context.Context) error {
	return c.server.SendCommand(commandNewConversation)
}
