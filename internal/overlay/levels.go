package overlay

const (
	// levelSlots is the size of the smoothing buffer.
	levelSlots = 16
	// levelBars is how many smoothed values the renderer draws.
	levelBars = 9

	smoothPrev = 0.7
	smoothIn   = 0.3
)

// LevelSmoother holds recent microphone amplitudes and applies a one-pole
// low-pass filter per update. Purely cosmetic; it feeds the bar heights of
// the compact overlay rendering and nothing else.
type LevelSmoother struct {
	slots [levelSlots]float64
}

// Update folds one frame of raw samples into the buffer. Each slot becomes
// prev*0.7 + sample*0.3. Frames shorter than the buffer reuse their last
// sample for the remaining slots; empty frames decay every slot toward zero.
func (s *LevelSmoother) Update(samples []float64) {
	for i := range s.slots {
		var in float64
		switch {
		case i < len(samples):
			in = clampUnit(samples[i])
		case len(samples) > 0:
			in = clampUnit(samples[len(samples)-1])
		}
		s.slots[i] = s.slots[i]*smoothPrev + in*smoothIn
	}
}

// Bars returns a copy of the displayed portion of the buffer.
func (s *LevelSmoother) Bars() []float64 {
	out := make([]float64, levelBars)
	copy(out, s.slots[:levelBars])
	return out
}

// Reset zeroes the buffer, used when the overlay is dismissed.
func (s *LevelSmoother) Reset() {
	s.slots = [levelSlots]float64{}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
