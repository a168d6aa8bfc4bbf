package overlay

import (
	"testing"
	"time"

	"github.com/murmur-app/murmur/internal/eventbus"
)

func TestConversationFromSnapshotFillsMissingIDs(t *testing.T) {
	conv := ConversationFromSnapshot(eventbus.ConversationSnapshot{
		Turns: []eventbus.TurnSnapshot{
			{Question: "q1", Response: "r1"},
			{ID: "keep", Question: "q2", Response: "r2", At: time.Unix(100, 0)},
		},
	})

	if conv.ID == "" {
		t.Fatal("missing conversation id should be generated")
	}
	if conv.Turns[0].ID == "" || conv.Turns[0].At.IsZero() {
		t.Fatalf("missing turn id/timestamp should be filled in: %+v", conv.Turns[0])
	}
	if conv.Turns[1].ID != "keep" || !conv.Turns[1].At.Equal(time.Unix(100, 0)) {
		t.Fatalf("present turn fields must pass through: %+v", conv.Turns[1])
	}
}

func TestConversationCompletedTurnsNilSafe(t *testing.T) {
	var conv *Conversation
	if conv.CompletedTurns() != 0 {
		t.Fatal("nil conversation should report zero turns")
	}
	if conv.Snapshot() != nil {
		t.Fatal("nil conversation snapshot should stay nil")
	}
}

func TestConversationSnapshotRoundTrip(t *testing.T) {
	conv := NewConversation()
	conv.Turns = append(conv.Turns, Turn{ID: "t1", Question: "q", Response: "r", At: time.Unix(5, 0)})

	snap := conv.Snapshot()
	if snap.ID != conv.ID || len(snap.Turns) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Turns[0] != (eventbus.TurnSnapshot{ID: "t1", Question: "q", Response: "r", At: time.Unix(5, 0)}) {
		t.Fatalf("turn did not round trip: %+v", snap.Turns[0])
	}
}
