// Package maskops provides shared binary-mask operations: coverage
// statistics, contour bounding boxes, and trimap-seeded mask refinement.
//
// Masks are single-channel gocv Mats with values in {0, 255}, always
// co-extensive with the image they describe.
package maskops

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Coverage returns the fraction of mask pixels that are foreground.
func Coverage(mask gocv.Mat) float64 {
	total := mask.Cols() * mask.Rows()
	if total <= 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}

// BoundingBox returns the bounding rectangle of the largest external contour
// of the mask. The second return value is false when the mask has no contour.
func BoundingBox(mask gocv.Mat) (image.Rectangle, bool) {
	contour, ok := largestContour(mask)
	if !ok {
		return image.Rectangle{}, false
	}
	defer contour.Close()
	return gocv.BoundingRect(contour), true
}

// largestContour returns the largest-by-area external contour of the mask.
// The caller owns the returned PointVector.
func largestContour(mask gocv.Mat) (gocv.PointVector, bool) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	bestIdx := -1
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > bestArea || bestIdx == -1 {
			bestIdx = i
			bestArea = area
		}
	}
	if bestIdx == -1 {
		return gocv.PointVector{}, false
	}

	return gocv.NewPointVectorFromPoints(contours.At(bestIdx).ToPoints()), true
}

// LargestContourArea returns the area of the mask's largest external contour,
// or 0 when the mask has no contour.
func LargestContourArea(mask gocv.Mat) float64 {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > best {
			best = area
		}
	}
	return best
}

// FillLargestContour returns a new mask containing only the filled largest
// external contour of the input, or a clone of the input when no contour
// exists.
func FillLargestContour(mask gocv.Mat) gocv.Mat {
	contour, ok := largestContour(mask)
	if !ok {
		return mask.Clone()
	}
	defer contour.Close()

	filled := gocv.NewMatWithSize(mask.Rows(), mask.Cols(), gocv.MatTypeCV8U)
	pts := gocv.NewPointsVector()
	defer pts.Close()
	pts.Append(contour)
	gocv.FillPoly(&filled, pts, white)

	return filled
}
