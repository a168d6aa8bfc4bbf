package overlay

import (
	"fmt"
	"time"

	"github.com/murmur-app/murmur/internal/eventbus"
)

// Insight is one AI commentary entry attached to a transcription segment.
// Text accumulates from streamed chunks until the terminal chunk arrives.
type Insight struct {
	Key          string
	SpeakerID    *int
	SpeakerLabel string
	At           time.Time
	acc          Accumulator
}

// Text returns the accumulated commentary so far.
func (in *Insight) Text() string { return in.acc.Text() }

// Streaming reports whether the insight is still receiving chunks.
func (in *Insight) Streaming() bool { return in.acc.Streaming() }

// ListeningSession tracks one active-listening session: its ordered insight
// entries and the current in-flight transcription text. The transcription is
// set by segment events and is independent from the insight accumulators.
type ListeningSession struct {
	ID            string
	StartedAt     time.Time
	Transcription string

	insights []*Insight
	keys     map[string]struct{}
}

// NewListeningSession creates an empty session for the given id.
func NewListeningSession(id string, startedAt time.Time) *ListeningSession {
	return &ListeningSession{
		ID:        id,
		StartedAt: startedAt,
		keys:      make(map[string]struct{}),
	}
}

// AddSegment records a finalized transcription segment. It updates the
// current transcription and appends a streaming insight placeholder keyed by
// session id plus timestamp. Duplicate deliveries of the same segment are
// no-ops. At most one insight streams at a time, so any previous streaming
// entry is frozen before the placeholder is created.
func (s *ListeningSession) AddSegment(seg eventbus.ListeningSegmentEvent) bool {
	if seg.SessionID != s.ID {
		return false
	}

	key := segmentKey(seg.SessionID, seg.Timestamp)
	if _, exists := s.keys[key]; exists {
		return false
	}
	s.keys[key] = struct{}{}

	s.Transcription = seg.Transcription

	for _, in := range s.insights {
		if in.acc.Streaming() {
			in.acc.Append("", true)
		}
	}

	entry := &Insight{
		Key:          key,
		SpeakerID:    seg.SpeakerID,
		SpeakerLabel: seg.SpeakerLabel,
		At:           seg.Timestamp,
	}
	entry.acc.Begin()
	s.insights = append(s.insights, entry)
	return true
}

// AppendInsight routes one chunk to the currently streaming insight. A chunk
// arriving with no streaming target is dropped.
func (s *ListeningSession) AppendInsight(chunk string, done bool) bool {
	for _, in := range s.insights {
		if in.acc.Streaming() {
			in.acc.Append(chunk, done)
			return true
		}
	}
	return false
}

// Insights returns the ordered insight entries.
func (s *ListeningSession) Insights() []*Insight {
	return s.insights
}

// Snapshots converts the insight entries into their render-ready form.
func (s *ListeningSession) Snapshots() []eventbus.InsightSnapshot {
	if len(s.insights) == 0 {
		return nil
	}
	out := make([]eventbus.InsightSnapshot, 0, len(s.insights))
	for _, in := range s.insights {
		out = append(out, eventbus.InsightSnapshot{
			ID:           in.Key,
			SpeakerID:    in.SpeakerID,
			SpeakerLabel: in.SpeakerLabel,
			At:           in.At,
			Text:         in.acc.Text(),
			Streaming:    in.acc.Streaming(),
		})
	}
	return out
}

func segmentKey(sessionID string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", sessionID, ts.UnixNano())
}
