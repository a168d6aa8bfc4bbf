package overlay

import "strings"

// Accumulator collects a streamed text payload chunk by chunk. Both insight
// entries and Ask-AI responses use it: non-terminal chunks with content are
// appended, a terminal chunk freezes the text and clears the streaming flag.
type Accumulator struct {
	buf       strings.Builder
	streaming bool
}

// Begin marks the accumulator as streaming and clears any previous text.
func (a *Accumulator) Begin() {
	a.buf.Reset()
	a.streaming = true
}

// Append applies one chunk. Any non-terminal chunk marks the accumulator as
// streaming; text on a terminal chunk is ignored, the done flag alone
// freezes it.
func (a *Accumulator) Append(chunk string, done bool) {
	if done {
		a.streaming = false
		return
	}
	a.streaming = true
	if chunk != "" {
		a.buf.WriteString(chunk)
	}
}

// Text returns the accumulated text so far.
func (a *Accumulator) Text() string {
	return a.buf.String()
}

// Streaming reports whether a terminal chunk has not yet arrived.
func (a *Accumulator) Streaming() bool {
	return a.streaming
}

// Reset clears the text and the streaming flag.
func (a *Accumulator) Reset() {
	a.buf.Reset()
	a.streaming = false
}
