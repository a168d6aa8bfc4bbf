package overlay

import "strings"

// ErrorCategory is the coarse class assigned to a raw backend error message.
type ErrorCategory string

const (
	ErrorConnection ErrorCategory = "connection"
	ErrorConfig     ErrorCategory = "config"
	ErrorTransient  ErrorCategory = "transient"
	ErrorSpeech     ErrorCategory = "speech"
	ErrorUnknown    ErrorCategory = "unknown"
)

// ClassifiedError is the render-ready interpretation of a backend error.
// Derived per render from the raw message, never stored.
type ClassifiedError struct {
	Message       string
	Category      ErrorCategory
	CanRetry      bool
	CheckSettings bool
}

// classifyRule matches when any of its needles appears in the lowercased
// message. Rules are evaluated in order; the first hit wins.
type classifyRule struct {
	category ErrorCategory
	needles  []string
}

var classifyRules = []classifyRule{
	{ErrorConnection, []string{
		"connection refused", "connect", "unreachable", "econnrefused",
		"network", "socket", "dial",
	}},
	{ErrorConfig, []string{
		"api key", "unauthorized", "forbidden", "invalid key", "not configured",
		"missing model", "model not found", "no such model",
	}},
	{ErrorTransient, []string{
		"timeout", "timed out", "temporarily", "rate limit", "overloaded",
		"too many requests", "busy",
	}},
	{ErrorSpeech, []string{
		"no speech", "no audio", "silence", "could not transcribe",
		"transcription failed", "microphone",
	}},
}

// Classify maps a raw error message to a category and its recovery
// affordances. Connection and config errors point the user at settings,
// transient and speech errors offer a retry, unknown shows the message only.
func Classify(message string) ClassifiedError {
	lower := strings.ToLower(message)

	category := ErrorUnknown
	for _, rule := range classifyRules {
		if matchesAny(lower, rule.needles) {
			category = rule.category
			break
		}
	}

	out := ClassifiedError{Message: message, Category: category}
	switch category {
	case ErrorConnection, ErrorConfig:
		out.CheckSettings = true
	case ErrorTransient, ErrorSpeech:
		out.CanRetry = true
	}
	return out
}

func matchesAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
