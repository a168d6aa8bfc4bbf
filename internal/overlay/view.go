package overlay

import "github.com/murmur-app/murmur/internal/eventbus"

// Mode selects which of the three mutually exclusive renderings the
// renderer should draw for the current state. Recording and transcribing
// states use the compact bar, active-listening states the insight feed, and
// the later Ask-AI states the conversation panel.
func (st *Store) Mode() eventbus.ViewMode {
	switch st.state {
	case eventbus.StateActiveListening, eventbus.StateActiveListeningProcessing:
		return eventbus.ViewInsights
	case eventbus.StateAskAIGenerating, eventbus.StateAskAIComplete, eventbus.StateAskAIError:
		return eventbus.ViewConversation
	}
	return eventbus.ViewBar
}

// Snapshot builds the complete render state for the current version. The
// error, when present, is classified fresh on every snapshot.
func (st *Store) Snapshot() eventbus.ViewSnapshotEvent {
	snap := eventbus.ViewSnapshotEvent{
		Version:    st.version,
		Visible:    st.visible,
		State:      st.state,
		Mode:       st.Mode(),
		Levels:     st.levels.Bars(),
		Question:   st.question,
		Response:   st.response.Text(),
		Streaming:  st.response.Streaming(),
		CanNewChat: st.conversation.CompletedTurns() > 0,
		Copied:     st.copied,
	}

	if st.session != nil {
		snap.Transcription = st.session.Transcription
		snap.Insights = st.session.Snapshots()
	}
	snap.Conversation = st.conversation.Snapshot()

	if st.errMsg != "" {
		classified := Classify(st.errMsg)
		snap.Error = &eventbus.ViewError{
			Message:       classified.Message,
			Category:      string(classified.Category),
			CanRetry:      classified.CanRetry,
			CheckSettings: classified.CheckSettings,
		}
	}

	return snap
}
