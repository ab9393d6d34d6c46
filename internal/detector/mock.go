package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands []HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(img *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// WristLandmarks returns a preset HandLandmarks with the wrist at (wx, wy)
// and the middle-finger MCP at (mx, my), all in normalized coordinates.
// The remaining landmarks fan out around the palm so that the convex hull
// of the hand covers a plausible region.
func WristLandmarks(wx, wy, mx, my float64) HandLandmarks {
	lm := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	lm.Points[Wrist] = Point{X: wx, Y: wy}
	lm.Points[MiddleMCP] = Point{X: mx, Y: my}

	// Direction from wrist to middle MCP drives the finger layout.
	dx := mx - wx
	dy := my - wy

	// Perpendicular to the forearm axis, used to spread the knuckles.
	px := -dy
	py := dx

	lm.Points[ThumbCMC] = Point{X: wx + 0.3*dx + 0.4*px, Y: wy + 0.3*dy + 0.4*py}
	lm.Points[ThumbMCP] = Point{X: wx + 0.5*dx + 0.5*px, Y: wy + 0.5*dy + 0.5*py}
	lm.Points[ThumbIP] = Point{X: wx + 0.7*dx + 0.55*px, Y: wy + 0.7*dy + 0.55*py}
	lm.Points[ThumbTip] = Point{X: wx + 0.9*dx + 0.6*px, Y: wy + 0.9*dy + 0.6*py}

	knuckles := []int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	for i, idx := range knuckles {
		if idx == MiddleMCP {
			continue
		}
		spread := 0.2 * float64(1-i)
		lm.Points[idx] = Point{X: mx + spread*px, Y: my + spread*py}
	}

	fingers := [][]int{
		{IndexPIP, IndexDIP, IndexTip},
		{MiddlePIP, MiddleDIP, MiddleTip},
		{RingPIP, RingDIP, RingTip},
		{PinkyPIP, PinkyDIP, PinkyTip},
	}
	for i, joints := range fingers {
		base := lm.Points[knuckles[i]]
		for j, idx := range joints {
			reach := 0.25 * float64(j+1)
			lm.Points[idx] = Point{X: base.X + reach*dx, Y: base.Y + reach*dy}
		}
	}

	return lm
}
