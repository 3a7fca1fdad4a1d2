package models

import "fmt"

// Canonical coordinate system bounds.
const (
	DisplaySize = 320
	CanvasSize  = 1024
)

// RenderSizes is the immutable rendering configuration shared by the preview and
// export paths. All proportional attributes are relative to Display.
type RenderSizes struct {
	Display int `json:"display"`
	Canvas  int `json:"canvas"`
}

// DefaultSizes returns the canonical 320/1024 pair.
func DefaultSizes() RenderSizes {
	return RenderSizes{Display: DisplaySize, Canvas: CanvasSize}
}

// Ratio is the linear export multiplier Canvas / Display.
func (s RenderSizes) Ratio() float64 {
	return float64(s.Canvas) / float64(s.Display)
}

// Normalize converts a display-unit measurement to the unit square.
func (s RenderSizes) Normalize(v float64) float64 {
	return v / float64(s.Display)
}

// Check validates that both sizes are positive.
func (s RenderSizes) Check() error {
	if s.Display <= 0 || s.Canvas <= 0 {
		return fmt.Errorf("render sizes must be positive, got display=%d canvas=%d", s.Display, s.Canvas)
	}
	return nil
}
