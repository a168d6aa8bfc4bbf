package eventbus

import "time"

// Topic identifies a logical channel on the bus.
type Topic string

// Topics consumed and produced by the overlay core.
const (
	TopicOverlayShow      Topic = "overlay.show"
	TopicOverlayHide      Topic = "overlay.hide"
	TopicOverlayView      Topic = "overlay.view"
	TopicAudioLevels      Topic = "audio.levels"
	TopicListeningState   Topic = "listening.state"
	TopicListeningSegment Topic = "listening.segment"
	TopicListeningInsight Topic = "listening.insight"
	TopicAskAIState       Topic = "askai.state"
	TopicAskAIResponse    Topic = "askai.response"
	TopicWindowChanged    Topic = "window.changed"
)

// Source describes which component produced an event.
type Source string

const (
	SourceBackend  Source = "backend"
	SourceRenderer Source = "renderer"
	SourceGateway  Source = "gateway"
	SourceOverlay  Source = "overlay"
	SourceUnknown  Source = "unknown"
)

// Envelope wraps every message published on the bus.
type Envelope struct {
	Topic         Topic
	Timestamp     time.Time
	Source        Source
	CorrelationID string
	Payload       any
}

// OverlayState is the closed set of overlay state tags. Exactly one is
// current at any time; visibility is tracked separately so a hidden
// overlay can be re-shown in the same state.
type OverlayState string

const (
	StateRecording                 OverlayState = "recording"
	StateTranscribing              OverlayState = "transcribing"
	StateActiveListening           OverlayState = "active-listening"
	StateActiveListeningProcessing OverlayState = "active-listening-processing"
	StateAskAIRecording            OverlayState = "ask-ai-recording"
	StateAskAITranscribing         OverlayState = "ask-ai-transcribing"
	StateAskAIGenerating           OverlayState = "ask-ai-generating"
	StateAskAIComplete             OverlayState = "ask-ai-complete"
	StateAskAIError                OverlayState = "ask-ai-error"
)

// Valid reports whether s is one of the known overlay state tags.
func (s OverlayState) Valid() bool {
	switch s {
	case StateRecording, StateTranscribing,
		StateActiveListening, StateActiveListeningProcessing,
		StateAskAIRecording, StateAskAITranscribing, StateAskAIGenerating,
		StateAskAIComplete, StateAskAIError:
		return true
	}
	return false
}

// IsAskAI reports whether s belongs to the Ask-AI family of states.
func (s OverlayState) IsAskAI() bool {
	switch s {
	case StateAskAIRecording, StateAskAITranscribing, StateAskAIGenerating,
		StateAskAIComplete, StateAskAIError:
		return true
	}
	return false
}

// OverlayShowEvent asks the overlay to become visible in the given state.
type OverlayShowEvent struct {
	State OverlayState
}

// OverlayHideEvent hides the overlay window without touching its state,
// so a later show resumes where it left off.
type OverlayHideEvent struct{}

// MicLevelEvent carries one frame of raw microphone amplitude samples,
// each in [0,1]. Frames are cosmetic; dropping some under load is fine.
type MicLevelEvent struct {
	Levels []float64
}

// ListeningPhase is the backend-reported phase of an active-listening session.
type ListeningPhase string

const (
	ListeningIdle       ListeningPhase = "idle"
	ListeningActive     ListeningPhase = "listening"
	ListeningProcessing ListeningPhase = "processing"
	ListeningError      ListeningPhase = "error"
)

// ListeningStateEvent notifies about active-listening session transitions.
// SessionID is set for the listening phase; Error for the error phase.
type ListeningStateEvent struct {
	Phase     ListeningPhase
	SessionID string
	Error     string
}

// ListeningSegmentEvent delivers one finalized transcription segment
// produced during an active-listening session.
type ListeningSegmentEvent struct {
	SessionID     string
	Transcription string
	Timestamp     time.Time
	SpeakerID     *int
	SpeakerLabel  string
}

// InsightChunkEvent is one increment of the streamed AI commentary for the
// most recent segment. Done marks the terminal chunk.
type InsightChunkEvent struct {
	SessionID string
	Chunk     string
	Done      bool
}

// AskAIPhase is the backend-reported phase of an Ask-AI interaction.
type AskAIPhase string

const (
	AskAIIdle               AskAIPhase = "idle"
	AskAIRecording          AskAIPhase = "recording"
	AskAITranscribing       AskAIPhase = "transcribing"
	AskAIGenerating         AskAIPhase = "generating"
	AskAIComplete           AskAIPhase = "complete"
	AskAIConversationActive AskAIPhase = "conversation_active"
	AskAIError              AskAIPhase = "error"
)

// TurnSnapshot is one completed question/response pair.
type TurnSnapshot struct {
	ID       string
	Question string
	Response string
	At       time.Time
}

// ConversationSnapshot is the backend's view of the current conversation.
type ConversationSnapshot struct {
	ID    string
	Turns []TurnSnapshot
}

// AskAIStateEvent reports an Ask-AI phase change. Question, Error and
// Conversation are optional; any subset may be present on a given event
// and absent fields leave the overlay's current values untouched.
type AskAIStateEvent struct {
	Phase        AskAIPhase
	Question     *string
	Error        *string
	Conversation *ConversationSnapshot
}

// ResponseChunkEvent is one increment of the streamed Ask-AI answer.
// Terminal chunks carry no text; they only freeze the accumulator.
type ResponseChunkEvent struct {
	Chunk string
	Done  bool
}

// WindowChangeKind distinguishes resize from move notifications.
type WindowChangeKind string

const (
	WindowResized WindowChangeKind = "resized"
	WindowMoved   WindowChangeKind = "moved"
)

// WindowChangedEvent signals that the host window geometry changed. The
// current geometry is read from the window handle at persist time, so the
// event itself carries no coordinates.
type WindowChangedEvent struct {
	Kind WindowChangeKind
}

// ViewMode selects which of the three mutually exclusive renderings the
// renderer should draw.
type ViewMode string

const (
	ViewBar          ViewMode = "bar"
	ViewInsights     ViewMode = "insights"
	ViewConversation ViewMode = "conversation"
)

// InsightSnapshot is the render-ready form of one insight entry.
type InsightSnapshot struct {
	ID           string
	SpeakerID    *int
	SpeakerLabel string
	At           time.Time
	Text         string
	Streaming    bool
}

// ViewError is the render-ready form of a classified backend error.
type ViewError struct {
	Message       string
	Category      string
	CanRetry      bool
	CheckSettings bool
}

// ViewSnapshotEvent is the complete render state published after every
// overlay mutation. Renderers draw the latest frame they receive; missing
// an intermediate frame is harmless.
type ViewSnapshotEvent struct {
	Version       uint64
	Visible       bool
	State         OverlayState
	Mode          ViewMode
	Levels        []float64
	Transcription string
	Insights      []InsightSnapshot
	Question      string
	Response      string
	Streaming     bool
	Conversation  *ConversationSnapshot
	Error         *ViewError
	CanNewChat    bool
	Copied        bool
}

// ---------------------------------------------------------------------------
// Typed topic descriptors
// ---------------------------------------------------------------------------
// Each TopicDef binds a Topic constant to its payload type, enabling
// compile-time enforcement via Publish[T] and SubscribeTo[T].

// Overlay groups overlay lifecycle topic descriptors.
var Overlay = struct {
	Show TopicDef[OverlayShowEvent]
	Hide TopicDef[OverlayHideEvent]
	View TopicDef[ViewSnapshotEvent]
}{
	Show: NewTopicDef[OverlayShowEvent](TopicOverlayShow),
	Hide: NewTopicDef[OverlayHideEvent](TopicOverlayHide),
	View: NewTopicDef[ViewSnapshotEvent](TopicOverlayView),
}

// Audio groups audio topic descriptors.
var Audio = struct {
	Levels TopicDef[MicLevelEvent]
}{
	Levels: NewTopicDef[MicLevelEvent](TopicAudioLevels),
}

// Listening groups active-listening topic descriptors.
var Listening = struct {
	State   TopicDef[ListeningStateEvent]
	Segment TopicDef[ListeningSegmentEvent]
	Insight TopicDef[InsightChunkEvent]
}{
	State:   NewTopicDef[ListeningStateEvent](TopicListeningState),
	Segment: NewTopicDef[ListeningSegmentEvent](TopicListeningSegment),
	Insight: NewTopicDef[InsightChunkEvent](TopicListeningInsight),
}

// AskAI groups Ask-AI topic descriptors.
var AskAI = struct {
	State    TopicDef[AskAIStateEvent]
	Response TopicDef[ResponseChunkEvent]
}{
	State:    NewTopicDef[AskAIStateEvent](TopicAskAIState),
	Response: NewTopicDef[ResponseChunkEvent](TopicAskAIResponse),
}

// Window groups host-window topic descriptors.
var Window = struct {
	Changed TopicDef[WindowChangedEvent]
}{
	Changed: NewTopicDef[WindowChangedEvent](TopicWindowChanged),
}
