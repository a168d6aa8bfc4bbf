package overlay

import (
	"time"

	"github.com/murmur-app/murmur/internal/eventbus"
)

// Store is the single container for everything the overlay renders: the
// current state tag, visibility, smoothed audio levels, the active-listening
// session, the Ask-AI conversation and its in-flight turn, and the current
// error. It is mutated only through the named transition methods below; the
// version counter increments on every mutation so renderers can discard
// stale frames.
//
// Store performs no locking. The service serializes all access behind its
// own mutex.
type Store struct {
	version uint64

	state   eventbus.OverlayState
	visible bool

	levels  LevelSmoother
	session *ListeningSession

	conversation *Conversation
	question     string
	response     Accumulator
	errMsg       string
	copied       bool
}

// NewStore returns a store in its pre-show configuration: not visible, with
// a placeholder state tag that is never rendered.
func NewStore() *Store {
	return &Store{state: eventbus.StateRecording}
}

// Version returns the mutation counter.
func (st *Store) Version() uint64 { return st.version }

// State returns the current state tag.
func (st *Store) State() eventbus.OverlayState { return st.state }

// Visible reports whether the overlay window should be shown.
func (st *Store) Visible() bool { return st.visible }

// Session returns the active-listening session, or nil outside one.
func (st *Store) Session() *ListeningSession { return st.session }

// Conversation returns the Ask-AI conversation, or nil when none is active.
func (st *Store) Conversation() *Conversation { return st.conversation }

// ErrorMessage returns the raw backend error message, empty when clear.
func (st *Store) ErrorMessage() string { return st.errMsg }

func (st *Store) bump() { st.version++ }

// Show makes the overlay visible in the requested state. Entering an Ask-AI
// recording state starts a fresh question cycle: question, response, error
// and copy flag are all reset. Entering a generating state keeps the
// question and resets only the response, error and copy flag, so chunks for
// the new answer never append to a stale buffer.
func (st *Store) Show(state eventbus.OverlayState) {
	defer st.bump()

	st.visible = true
	if !state.Valid() {
		return
	}
	st.state = state

	switch state {
	case eventbus.StateAskAIRecording:
		st.question = ""
		st.response.Reset()
		st.errMsg = ""
		st.copied = false
	case eventbus.StateAskAIGenerating:
		st.response.Reset()
		st.errMsg = ""
		st.copied = false
	}
}

// Hide makes the overlay invisible without touching its state, so a later
// show resumes where it left off.
func (st *Store) Hide() {
	st.visible = false
	st.bump()
}

// StartListening begins a new active-listening session, replacing any
// previous one, and makes the overlay visible.
func (st *Store) StartListening(sessionID string, at time.Time) {
	st.state = eventbus.StateActiveListening
	st.session = NewListeningSession(sessionID, at)
	st.visible = true
	st.bump()
}

// ListeningProcessing marks the session as processing.
func (st *Store) ListeningProcessing() {
	st.state = eventbus.StateActiveListeningProcessing
	st.bump()
}

// ListeningIdle hides the overlay and discards the session entirely.
func (st *Store) ListeningIdle() {
	st.visible = false
	st.session = nil
	st.bump()
}

// AddSegment applies a transcription segment to the current session.
// Segments arriving outside a session, or duplicates, are no-ops.
func (st *Store) AddSegment(seg eventbus.ListeningSegmentEvent) bool {
	if st.session == nil {
		return false
	}
	if !st.session.AddSegment(seg) {
		return false
	}
	st.bump()
	return true
}

// AppendInsight routes one insight chunk into the current session. Chunks
// with no session or no streaming target are dropped.
func (st *Store) AppendInsight(chunk string, done bool) bool {
	if st.session == nil {
		return false
	}
	if !st.session.AppendInsight(chunk, done) {
		return false
	}
	st.bump()
	return true
}

// ApplyAskAIState maps a backend Ask-AI phase onto the state tag and
// opportunistically updates question, error and conversation from whatever
// the event carries. An idle phase clears the conversation and in-flight
// fields but leaves the state tag alone.
func (st *Store) ApplyAskAIState(ev eventbus.AskAIStateEvent) {
	defer st.bump()

	switch ev.Phase {
	case eventbus.AskAIRecording:
		st.state = eventbus.StateAskAIRecording
	case eventbus.AskAITranscribing:
		st.state = eventbus.StateAskAITranscribing
	case eventbus.AskAIGenerating:
		st.state = eventbus.StateAskAIGenerating
	case eventbus.AskAIComplete, eventbus.AskAIConversationActive:
		st.state = eventbus.StateAskAIComplete
	case eventbus.AskAIError:
		st.state = eventbus.StateAskAIError
	case eventbus.AskAIIdle:
		st.clearAskAI()
		return
	}

	if ev.Question != nil {
		st.question = *ev.Question
	}
	if ev.Error != nil {
		st.errMsg = *ev.Error
	}
	if ev.Conversation != nil {
		st.conversation = ConversationFromSnapshot(*ev.Conversation)
	}
}

// AppendResponse applies one Ask-AI response chunk to the in-flight turn.
// Response chunks never change the state tag.
func (st *Store) AppendResponse(chunk string, done bool) {
	st.response.Append(chunk, done)
	st.bump()
}

// UpdateLevels folds a frame of raw microphone samples into the smoother.
func (st *Store) UpdateLevels(samples []float64) {
	st.levels.Update(samples)
	st.bump()
}

// Dismiss closes the Ask-AI session: the overlay hides and the conversation
// with all in-flight fields is destroyed. Shared by the user action and the
// auto-dismiss timer.
func (st *Store) Dismiss() {
	st.visible = false
	st.clearAskAI()
	st.levels.Reset()
	st.bump()
}

// ClearError drops the current error and the in-flight response without
// re-issuing anything. If completed turns exist the conversation stays on
// screen, otherwise the overlay behaves as a dismissal.
func (st *Store) ClearError() {
	if st.conversation.CompletedTurns() > 0 {
		st.errMsg = ""
		st.response.Reset()
		st.state = eventbus.StateAskAIComplete
		st.bump()
		return
	}
	st.Dismiss()
}

// ResetConversation destroys the conversation and in-flight fields but keeps
// the overlay visible, ready for the next question.
func (st *Store) ResetConversation() {
	st.clearAskAI()
	st.bump()
}

// MarkCopied records the optimistic copy flag shown next to the response.
func (st *Store) MarkCopied(copied bool) {
	st.copied = copied
	st.bump()
}

func (st *Store) clearAskAI() {
	st.conversation = nil
	st.question = ""
	st.response.Reset()
	st.errMsg = ""
	st.copied = false
}
