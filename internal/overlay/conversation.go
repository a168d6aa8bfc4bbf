package overlay

import (
	"time"

	"github.com/google/uuid"

	"github.com/murmur-app/murmur/internal/eventbus"
)

// Turn is one completed question/response pair.
type Turn struct {
	ID       string
	Question string
	Response string
	At       time.Time
}

// Conversation holds the completed turns of a multi-turn Ask-AI exchange.
// The in-flight turn is tracked separately by the store's question field and
// response accumulator; a turn joins this list only once complete.
type Conversation struct {
	ID    string
	Turns []Turn
}

// NewConversation creates an empty conversation with a fresh id.
func NewConversation() *Conversation {
	return &Conversation{ID: uuid.NewString()}
}

// ConversationFromSnapshot rebuilds a conversation from the backend's view.
// Turns missing ids or timestamps are filled in locally.
func ConversationFromSnapshot(snap eventbus.ConversationSnapshot) *Conversation {
	conv := &Conversation{ID: snap.ID}
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	for _, t := range snap.Turns {
		turn := Turn{
			ID:       t.ID,
			Question: t.Question,
			Response: t.Response,
			At:       t.At,
		}
		if turn.ID == "" {
			turn.ID = uuid.NewString()
		}
		if turn.At.IsZero() {
			turn.At = time.Now().UTC()
		}
		conv.Turns = append(conv.Turns, turn)
	}
	return conv
}

// CompletedTurns returns the number of finished turns; zero when conv is nil.
// One or more completed turns suppresses auto-dismiss and unlocks the
// new-conversation affordance.
func (c *Conversation) CompletedTurns() int {
	if c == nil {
		return 0
	}
	return len(c.Turns)
}

// Snapshot converts the conversation into its wire form; nil stays nil.
func (c *Conversation) Snapshot() *eventbus.ConversationSnapshot {
	if c == nil {
		return nil
	}
	snap := &eventbus.ConversationSnapshot{ID: c.ID}
	for _, t := range c.Turns {
		snap.Turns = append(snap.Turns, eventbus.TurnSnapshot{
			ID:       t.ID,
			Question: t.Question,
			Response: t.Response,
			At:       t.At,
		})
	}
	return snap
}
