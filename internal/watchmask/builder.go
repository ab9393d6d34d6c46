// Package watchmask isolates the watch silhouette in a product photo from
// raw object-detector output, with heuristics for when detection fails.
package watchmask

import (
	"image"
	"strings"

	"gocv.io/x/gocv"

	"watch-tryon/internal/maskops"
	"watch-tryon/internal/segmenter"
)

// watchKeywords accept a detection by label, case-insensitive substring.
var watchKeywords = []string{"watch", "clock", "bracelet", "jewelry", "accessory"}

const (
	// Detections without a matching label are still accepted when their
	// mask covers a plausible fraction of the product photo.
	minCandidateRatio = 0.05
	maxCandidateRatio = 0.8

	// fallbackMargin is the per-side border left out of the full-image
	// fallback mask.
	fallbackMargin = 0.1

	// minBlobRatio triggers a dilation when the selected blob is suspiciously
	// small; the detector likely under-segmented the watch.
	minBlobRatio = 0.1
)

// Region is the selected watch silhouette within the product image.
type Region struct {
	// Mask is a binary mask co-extensive with the product image.
	Mask gocv.Mat

	// Bounds is the bounding box of the mask's largest contour. A zero
	// rectangle means the mask has no contour and placement must skip.
	Bounds image.Rectangle
}

// Close releases the region's mask.
func (r *Region) Close() {
	if !r.Mask.Empty() {
		r.Mask.Close()
	}
}

// Build selects, cleans, and refines the watch mask for one product image.
// One watch per product photo is assumed; the returned region covers the
// whole image. Build never fails: when detection yields nothing usable it
// degrades to an interior fallback mask.
func Build(img gocv.Mat, detections []segmenter.Detection) Region {
	raw := BuildRaw(img, detections)
	defer raw.Close()

	refined := maskops.Refine(img, raw, maskops.WatchRefineOptions())

	bounds, ok := maskops.BoundingBox(refined)
	if !ok {
		bounds = image.Rectangle{}
	}

	return Region{Mask: refined, Bounds: bounds}
}

// BuildRaw runs candidate selection, fallback, and morphological cleanup,
// stopping short of the trimap refinement pass.
func BuildRaw(img gocv.Mat, detections []segmenter.Detection) gocv.Mat {
	mask := unionCandidates(img, detections)

	if gocv.CountNonZero(mask) == 0 {
		mask.Close()
		mask = interiorMask(img.Cols(), img.Rows())
	}

	cleaned := cleanup(img, mask)
	mask.Close()
	return cleaned
}

// unionCandidates resizes, binarizes, and unions every acceptable detection
// mask. A candidate is acceptable when its label matches a watch keyword or
// its mask covers a plausible fraction of the image.
func unionCandidates(img gocv.Mat, detections []segmenter.Detection) gocv.Mat {
	union := gocv.NewMatWithSize(img.Rows(), img.Cols(), gocv.MatTypeCV8U)

	for i := range detections {
		det := &detections[i]
		if !det.HasMask() {
			continue
		}

		resized := gocv.NewMat()
		gocv.Resize(*det.Mask, &resized, image.Pt(img.Cols(), img.Rows()), 0, 0,
			gocv.InterpolationLinear)

		binary := gocv.NewMat()
		gocv.Threshold(resized, &binary, 127, 255, gocv.ThresholdBinary)
		resized.Close()

		ratio := maskops.Coverage(binary)
		if isWatchLabel(det.Label) || (ratio > minCandidateRatio && ratio < maxCandidateRatio) {
			gocv.Max(union, binary, &union)
		}
		binary.Close()
	}

	return union
}

func isWatchLabel(label string) bool {
	lower := strings.ToLower(label)
	for _, kw := range watchKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// interiorMask assumes the whole photo, minus a border, is the watch.
func interiorMask(w, h int) gocv.Mat {
	mask := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)

	marginX := int(float64(w) * fallbackMargin)
	marginY := int(float64(h) * fallbackMargin)
	inner := mask.Region(image.Rect(marginX, marginY, w-marginX, h-marginY))
	inner.SetTo(gocv.NewScalar(255, 0, 0, 0))
	inner.Close()

	return mask
}

// cleanup closes holes, removes speckle, keeps only the largest blob, and
// grows blobs that are too small to place a watch from.
func cleanup(img, mask gocv.Mat) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(5, 5))
	defer kernel.Close()

	work := mask.Clone()
	gocv.MorphologyEx(work, &work, gocv.MorphClose, kernel)
	gocv.MorphologyEx(work, &work, gocv.MorphOpen, kernel)

	blobArea := maskops.LargestContourArea(work)
	if blobArea == 0 {
		return work
	}

	filled := maskops.FillLargestContour(work)
	work.Close()

	totalArea := float64(img.Cols() * img.Rows())
	if blobArea/totalArea < minBlobRatio {
		grow := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(20, 20))
		defer grow.Close()
		gocv.Dilate(filled, &filled, grow)
	}

	return filled
}
