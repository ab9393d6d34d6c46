// Package placement computes how a watch layer is sized, rotated, and
// positioned on a wrist. The math here is pure arithmetic over the watch
// region's bounding box; the actual pixel work happens in the compositor.
package placement

import (
	"errors"
	"image"
	"math"
)

// wristSizeRatio sizes the watch so its longer side spans this fraction of
// the hand image's shorter dimension.
const wristSizeRatio = 0.29

// rotationThreshold suppresses rotation for near-level wrists, where the
// angle estimate is mostly landmark noise.
const rotationThreshold = 5.0

// ErrEmptyRegion signals that the watch mask yields no contour and this
// wrist must be skipped. The rest of the request proceeds.
var ErrEmptyRegion = errors.New("watch region has no contour")

// Plan fully determines how to transform and place the watch layer for one
// wrist.
type Plan struct {
	// TargetSize is the resize target for the cropped watch, before any
	// rotation. Both components are always positive.
	TargetSize image.Point

	// Rotation is the wear angle in degrees, or 0 when rotation is
	// suppressed. Rotation is applied about the resized layer's center.
	Rotation float64

	// LayerSize is the axis-aligned size of the final layer: the enclosing
	// rectangle of the rotated target, or TargetSize when no rotation is
	// applied.
	LayerSize image.Point

	// TopLeft centers the layer on the wrist anchor.
	TopLeft image.Point
}

// Rotated reports whether the plan calls for a rotation pass.
func (p *Plan) Rotated() bool {
	return p.Rotation != 0
}

// Compute derives the placement plan for one wrist.
//
// The watch crop is scaled so that its longer side is wristSizeRatio of the
// hand image's shorter side, preserving aspect ratio. Wrists at more than
// rotationThreshold degrees get the layer rotated by the wear angle, with
// the layer bounds expanded to the rotated rectangle's enclosing box.
func Compute(bounds image.Rectangle, wrist image.Point, wearAngle float64, handW, handH int) (Plan, error) {
	cropW := bounds.Dx()
	cropH := bounds.Dy()
	if cropW <= 0 || cropH <= 0 {
		return Plan{}, ErrEmptyRegion
	}

	target := targetSize(cropW, cropH, handW, handH)

	plan := Plan{
		TargetSize: target,
		LayerSize:  target,
	}

	if math.Abs(wearAngle) > rotationThreshold {
		plan.Rotation = wearAngle
		plan.LayerSize = EnclosingSize(target, wearAngle)
	}

	plan.TopLeft = image.Pt(
		wrist.X-plan.LayerSize.X/2,
		wrist.Y-plan.LayerSize.Y/2,
	)

	return plan, nil
}

// targetSize scales the crop to the wrist, preserving aspect ratio. The
// longer side drives the scale; components are clamped to at least 1px.
func targetSize(cropW, cropH, handW, handH int) image.Point {
	short := handW
	if handH < short {
		short = handH
	}
	wristSize := float64(short) * wristSizeRatio

	aspect := float64(cropW) / float64(cropH)

	var w, h int
	if aspect >= 1 {
		w = int(wristSize)
		h = int(wristSize / aspect)
	} else {
		h = int(wristSize)
		w = int(wristSize * aspect)
	}

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Pt(w, h)
}

// EnclosingSize returns the axis-aligned bounding box of a w x h rectangle
// rotated by the given angle in degrees.
func EnclosingSize(size image.Point, angleDegrees float64) image.Point {
	rad := angleDegrees * math.Pi / 180
	cos := math.Abs(math.Cos(rad))
	sin := math.Abs(math.Sin(rad))

	w := float64(size.X)
	h := float64(size.Y)
	return image.Pt(
		int(h*sin+w*cos),
		int(h*cos+w*sin),
	)
}
