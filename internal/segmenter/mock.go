package segmenter

import (
	"gocv.io/x/gocv"
)

// MockSegmenter is a test implementation of the Segmenter interface.
type MockSegmenter struct {
	detections []Detection
	err        error
}

// NewMockSegmenter creates a new MockSegmenter instance.
func NewMockSegmenter() *MockSegmenter {
	return &MockSegmenter{}
}

// SetDetections sets the detections that will be returned by Detect.
func (m *MockSegmenter) SetDetections(detections []Detection) {
	m.detections = detections
}

// SetError sets the error that will be returned by Detect.
func (m *MockSegmenter) SetError(err error) {
	m.err = err
}

// Detect returns copies of the pre-configured detections or the error.
// Masks are cloned so that callers can Close them independently.
func (m *MockSegmenter) Detect(img *gocv.Mat) ([]Detection, error) {
	if m.err != nil {
		return nil, m.err
	}

	out := make([]Detection, len(m.detections))
	for i, d := range m.detections {
		out[i] = Detection{Label: d.Label, Confidence: d.Confidence}
		if d.HasMask() {
			clone := d.Mask.Clone()
			out[i].Mask = &clone
		}
	}
	return out, nil
}

// Close releases the masks held by the mock.
func (m *MockSegmenter) Close() error {
	for i := range m.detections {
		m.detections[i].Close()
	}
	return nil
}
