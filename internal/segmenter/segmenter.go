// Package segmenter provides the object detector/segmenter adapter used to
// isolate the watch in product photos.
package segmenter

import "gocv.io/x/gocv"

// Detection is one candidate object reported by the segmenter.
type Detection struct {
	// Label is the detector's class name for the object.
	Label string

	// Confidence is the detection score in the 0..1 range.
	Confidence float64

	// Mask is an optional single-channel per-pixel mask (probability scaled
	// to 0..255). Its resolution may differ from the source image; resizing
	// to source resolution is the consumer's responsibility. A nil Mask
	// means the detection carries no mask.
	Mask *gocv.Mat
}

// HasMask reports whether the detection carries a usable per-pixel mask.
func (d *Detection) HasMask() bool {
	return d.Mask != nil && !d.Mask.Empty()
}

// Close releases the detection's mask, if any.
func (d *Detection) Close() {
	if d.Mask != nil {
		d.Mask.Close()
		d.Mask = nil
	}
}

// Segmenter defines the interface for object detector implementations.
type Segmenter interface {
	// Detect analyzes an image and returns candidate detections.
	// Returns an empty slice if nothing is detected. The caller owns the
	// returned masks and must Close them.
	Detect(img *gocv.Mat) ([]Detection, error)

	// Close releases any resources held by the segmenter.
	Close() error
}

// Config holds configuration options for object detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// ScriptPath overrides the location of the segmenter service script.
	ScriptPath string

	// PythonPath overrides the Python interpreter used for the service.
	PythonPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.25,
	}
}
