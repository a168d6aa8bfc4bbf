package gateway

import (
	"encoding/json"
	"time"

	"github.com/murmur-app/murmur/internal/eventbus"
)

// Message is the JSON frame exchanged with backend producers and renderer
// clients over the websocket.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Inbound message types from backend producers.
const (
	msgShowOverlay      = "show-overlay"
	msgHideOverlay      = "hide-overlay"
	msgMicLevel         = "mic-level"
	msgListeningState   = "listening-state"
	msgListeningSegment = "listening-segment"
	msgListeningInsight = "listening-insight"
	msgAskAIState       = "askai-state"
	msgAskAIResponse    = "askai-response"
)

// Inbound message types from renderer clients.
const (
	msgWindow = "window"
	msgAction = "action"
)

// Outbound message types.
const (
	msgView    = "view"
	msgCommand = "command"
	msgError   = "error"
)

type showPayload struct {
	State string `json:"state"`
}

type micLevelPayload struct {
	Levels []float64 `json:"levels"`
}

type listeningStatePayload struct {
	State     string `json:"state"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type segmentPayload struct {
	SessionID     string    `json:"sessionId"`
	Transcription string    `json:"transcription"`
	Timestamp     time.Time `json:"timestamp"`
	SpeakerID     *int      `json:"speakerId,omitempty"`
	SpeakerLabel  string    `json:"speakerLabel,omitempty"`
}

type chunkPayload struct {
	SessionID string `json:"sessionId,omitempty"`
	Chunk     string `json:"chunk"`
	Done      bool   `json:"done"`
}

type turnPayload struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

type conversationPayload struct {
	ID    string        `json:"id"`
	Turns []turnPayload `json:"turns"`
}

type askAIStatePayload struct {
	State        string               `json:"state"`
	Question     *string              `json:"question,omitempty"`
	Error        *string              `json:"error,omitempty"`
	Conversation *conversationPayload `json:"conversation,omitempty"`
}

// windowPayload reports the renderer's current geometry in raw pixels plus
// the display scale factor.
type windowPayload struct {
	Kind   string  `json:"kind"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Scale  float64 `json:"scale"`
}

type actionPayload struct {
	Action string `json:"action"`
}

// Renderer action names.
const (
	actionCancel  = "cancel"
	actionDismiss = "dismiss"
	actionRetry   = "retry"
	actionNewChat = "new-conversation"
	actionCopy    = "copy-response"
	actionHide    = "hide"
)

type commandPayload struct {
	Name string `json:"name"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Backend command names pushed to producer clients.
const (
	commandCancelRecording = "cancel-recording"
	commandDismissAskAI    = "dismiss-askai"
	commandNewConversation = "new-conversation"
)

func (p conversationPayload) toSnapshot() *eventbus.ConversationSnapshot {
	snap := &eventbus.ConversationSnapshot{ID: p.ID}
	for _, t := range p.Turns {
		snap.Turns = append(snap.Turns, eventbus.TurnSnapshot{
			ID:       t.ID,
			Question: t.Question,
			Response: t.Response,
			At:       t.At,
		})
	}
	return snap
}

func encodeMessage(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	})
}
