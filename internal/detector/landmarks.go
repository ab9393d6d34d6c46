package detector

import "image"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point represents a normalized landmark coordinate in the 0..1 range,
// origin top-left, y down.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandLandmarks represents the 21 hand landmarks detected for one hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point `json:"points"`
	Handedness string              `json:"handedness"` // "Left" or "Right"
	Score      float64             `json:"score"`
}

// Pixel converts the landmark at the given index to absolute pixel
// coordinates for an image of the given dimensions.
func (h *HandLandmarks) Pixel(index, width, height int) image.Point {
	p := h.Points[index]
	return image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
}

// PixelPoints converts all 21 landmarks to absolute pixel coordinates.
func (h *HandLandmarks) PixelPoints(width, height int) []image.Point {
	pts := make([]image.Point, NumLandmarks)
	for i := range h.Points {
		pts[i] = h.Pixel(i, width, height)
	}
	return pts
}
