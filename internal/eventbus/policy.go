package eventbus

// DeliveryStrategy determines behaviour when a subscriber's channel is full.
type DeliveryStrategy string

const (
	// StrategyDropOldest removes the oldest event from the channel and enqueues the new one.
	StrategyDropOldest DeliveryStrategy = "drop-oldest"
	// StrategyDropNewest discards the incoming event when the channel is full.
	StrategyDropNewest DeliveryStrategy = "drop-newest"
	// StrategyOverflow spills into a capped ring buffer; a background goroutine drains it back.
	StrategyOverflow DeliveryStrategy = "overflow"
)

// DeliveryPolicy controls how a topic handles backpressure.
type DeliveryPolicy struct {
	Strategy    DeliveryStrategy
	MaxOverflow int // ring buffer cap for StrategyOverflow (0 = defaultMaxOverflow)
}

const defaultMaxOverflow = 512

// defaultPolicy is used for topics without an explicit entry in defaultPolicies.
var defaultPolicy = DeliveryPolicy{Strategy: StrategyDropOldest}

// defaultPolicies maps known topics to their delivery policies.
//
// State transitions and streamed text chunks ride the overflow ring: a
// dropped chunk corrupts accumulated text and a dropped transition wedges
// the state machine. Mic levels, window notifications and view snapshots
// are frame-like, the latest one supersedes everything before it.
var defaultPolicies = map[Topic]DeliveryPolicy{
	TopicOverlayShow:      {Strategy: StrategyOverflow, MaxOverflow: defaultMaxOverflow},
	TopicOverlayHide:      {Strategy: StrategyOverflow, MaxOverflow: defaultMaxOverflow},
	TopicListeningState:   {Strategy: StrategyOverflow, MaxOverflow: defaultMaxOverflow},
	TopicListeningSegment: {Strategy: StrategyOverflow, MaxOverflow: defaultMaxOverflow},
	TopicListeningInsight: {Strategy: StrategyOverflow, MaxOverflow: defaultMaxOverflow},
	TopicAskAIState:       {Strategy: StrategyOverflow, MaxOverflow: defaultMaxOverflow},
	TopicAskAIResponse:    {Strategy: StrategyOverflow, MaxOverflow: defaultMaxOverflow},

	TopicAudioLevels:   {Strategy: StrategyDropOldest},
	TopicWindowChanged: {Strategy: StrategyDropOldest},
	TopicOverlayView:   {Strategy: StrategyDropOldest},
}

// policyFor returns the delivery policy for a topic, falling back to defaultPolicy.
func policyFor(topic Topic, overrides map[Topic]DeliveryPolicy) DeliveryPolicy {
	if overrides != nil {
		if p, ok := overrides[topic]; ok {
			return p
		}
	}
	if p, ok := defaultPolicies[topic]; ok {
		return p
	}
	return defaultPolicy
}
