// Package compose renders the watch layer (mask, crop, resize, rotate) and
// alpha-blends it onto the hand image.
package compose

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"watch-tryon/internal/placement"
	"watch-tryon/internal/watchmask"
)

// ErrEmptyLayer signals that the watch crop had no usable pixels.
var ErrEmptyLayer = errors.New("watch layer is empty")

// RenderLayer produces the transformed watch layer and its alpha mask for
// one placement plan: the product image is masked to the watch silhouette,
// cropped to its bounding box, resized to the plan's target, and rotated
// into the plan's expanded canvas when the plan calls for it.
//
// The caller owns both returned Mats.
func RenderLayer(watch gocv.Mat, region watchmask.Region, plan placement.Plan) (gocv.Mat, gocv.Mat, error) {
	if region.Bounds.Dx() <= 0 || region.Bounds.Dy() <= 0 {
		return gocv.Mat{}, gocv.Mat{}, ErrEmptyLayer
	}

	// Everything outside the mask becomes black so rotation borders and
	// blending both see zero there.
	masked := gocv.NewMat()
	gocv.BitwiseAndWithMask(watch, watch, &masked, region.Mask)
	defer masked.Close()

	cropView := masked.Region(region.Bounds)
	crop := cropView.Clone()
	cropView.Close()
	defer crop.Close()

	maskView := region.Mask.Region(region.Bounds)
	maskCrop := maskView.Clone()
	maskView.Close()
	defer maskCrop.Close()

	layer := gocv.NewMat()
	gocv.Resize(crop, &layer, plan.TargetSize, 0, 0, gocv.InterpolationLinear)

	alpha := gocv.NewMat()
	gocv.Resize(maskCrop, &alpha, plan.TargetSize, 0, 0, gocv.InterpolationLinear)

	if !plan.Rotated() {
		return layer, alpha, nil
	}

	rotatedLayer := rotateExpanded(layer, plan.Rotation, plan.LayerSize)
	layer.Close()
	rotatedAlpha := rotateExpanded(alpha, plan.Rotation, plan.LayerSize)
	alpha.Close()

	return rotatedLayer, rotatedAlpha, nil
}

// rotateExpanded rotates a layer about its center into a canvas of the given
// size, which must be the enclosing rectangle of the rotated layer. Exposed
// area is filled with black (transparent for the alpha mask).
func rotateExpanded(src gocv.Mat, angleDegrees float64, canvas image.Point) gocv.Mat {
	w := src.Cols()
	h := src.Rows()
	center := image.Pt(w/2, h/2)

	rotMat := gocv.GetRotationMatrix2D(center, angleDegrees, 1.0)
	defer rotMat.Close()

	// Shift so the rotated content lands centered on the new canvas.
	rotMat.SetDoubleAt(0, 2, rotMat.GetDoubleAt(0, 2)+float64(canvas.X-w)/2)
	rotMat.SetDoubleAt(1, 2, rotMat.GetDoubleAt(1, 2)+float64(canvas.Y-h)/2)

	rotated := gocv.NewMat()
	gocv.WarpAffine(src, &rotated, rotMat, canvas)
	return rotated
}
