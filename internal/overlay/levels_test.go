package overlay

import (
	"math"
	"testing"
)

func TestLevelSmootherConvergesToConstant(t *testing.T) {
	var s LevelSmoother
	const target = 0.8

	frame := make([]float64, levelSlots)
	for i := range frame {
		frame[i] = target
	}

	prev := s.Bars()[0]
	for k := 0; k < 60; k++ {
		s.Update(frame)
		cur := s.Bars()[0]
		if math.Abs(target-cur) >= math.Abs(target-prev) && prev != cur {
			t.Fatalf("update %d moved away from target: prev=%f cur=%f", k, prev, cur)
		}
		if cur > target {
			t.Fatalf("update %d overshot target: %f", k, cur)
		}
		prev = cur
	}

	if math.Abs(s.Bars()[0]-target) > 1e-3 {
		t.Fatalf("did not converge: got %f, want ~%f", s.Bars()[0], target)
	}
}

func TestLevelSmootherBarCount(t *testing.T) {
	var s LevelSmoother
	s.Update([]float64{0.5})

	bars := s.Bars()
	if len(bars) != levelBars {
		t.Fatalf("expected %d bars, got %d", levelBars, len(bars))
	}
}

func TestLevelSmootherShortFrameReusesLastSample(t *testing.T) {
	var s LevelSmoother
	s.Update([]float64{1.0})

	bars := s.Bars()
	for i, v := range bars {
		if v != smoothIn {
			t.Fatalf("bar %d: expected %f, got %f", i, smoothIn, v)
		}
	}
}

func TestLevelSmootherClampsSamples(t *testing.T) {
	var s LevelSmoother
	s.Update([]float64{5.0, -3.0})

	bars := s.Bars()
	if bars[0] != smoothIn {
		t.Fatalf("expected clamped high sample to yield %f, got %f", smoothIn, bars[0])
	}
	if bars[1] < 0 {
		t.Fatalf("expected clamped low sample to stay non-negative, got %f", bars[1])
	}
}

func TestLevelSmootherReset(t *testing.T) {
	var s LevelSmoother
	s.Update([]float64{1, 1, 1})
	s.Reset()

	for i, v := range s.Bars() {
		if v != 0 {
			t.Fatalf("bar %d not zeroed: %f", i, v)
		}
	}
}
