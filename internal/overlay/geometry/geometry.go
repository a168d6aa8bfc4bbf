package geometry

// Bounds is a window rectangle in device-independent units. Raw pixel
// measurements are divided by the display scale factor before persistence
// and multiplied back on restore.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Window is the host window handle the debouncer reads at persist time.
// Size and Position return raw pixels; ScaleFactor converts them to
// device-independent units.
type Window interface {
	Size() (width, height float64)
	Position() (x, y float64)
	ScaleFactor() float64
}

// Read captures the window's current geometry normalized by its scale
// factor. A zero or negative scale factor is treated as 1.
func Read(w Window) Bounds {
	width, height := w.Size()
	x, y := w.Position()

	scale := w.ScaleFactor()
	if scale <= 0 {
		scale = 1
	}

	return Bounds{
		Width:  width / scale,
		Height: height / scale,
		X:      x / scale,
		Y:      y / scale,
	}
}
