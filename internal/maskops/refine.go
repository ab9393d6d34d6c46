package maskops

import (
	"fmt"
	"image"
	"log"

	"gocv.io/x/gocv"
)

// GrabCut mask labels, per OpenCV.
const (
	labelBackground         = 0
	labelForeground         = 1
	labelProbableBackground = 2
	labelProbableForeground = 3
)

// RefineOptions controls the trimap-seeded GrabCut refinement.
type RefineOptions struct {
	// KernelSize is the side of the square kernel used to erode and dilate
	// the source mask when building the trimap.
	KernelSize int

	// SeedIterations is how many erode/dilate passes seed the trimap.
	SeedIterations int

	// GrabCutIterations bounds the energy-minimization runtime.
	GrabCutIterations int

	// MinKeepRatio is the acceptance gate: refinement is discarded when the
	// refined foreground count drops below this fraction of the source
	// mask's count.
	MinKeepRatio float64

	// MaxSide caps the working resolution; larger inputs are downscaled
	// before refinement and the result is rescaled back.
	MaxSide int
}

// WatchRefineOptions are the parameters used for watch product masks.
func WatchRefineOptions() RefineOptions {
	return RefineOptions{
		KernelSize:        3,
		SeedIterations:    2,
		GrabCutIterations: 3,
		MinKeepRatio:      0.3,
		MaxSide:           800,
	}
}

// HandRefineOptions are the parameters used for hand silhouettes, which
// tolerate less shrinkage before the refinement is considered broken.
func HandRefineOptions() RefineOptions {
	return RefineOptions{
		KernelSize:        3,
		SeedIterations:    3,
		GrabCutIterations: 3,
		MinKeepRatio:      0.5,
		MaxSide:           800,
	}
}

// Refine tightens a coarse binary mask against the image's actual color
// boundaries using a trimap-seeded GrabCut pass.
//
// Refinement is untrusted: when it faults, or when the refined foreground
// shrinks below opts.MinKeepRatio of the source mask, the source mask is
// returned unchanged (as a copy). The input mask is never mutated and the
// caller owns the returned Mat.
func Refine(img, mask gocv.Mat, opts RefineOptions) gocv.Mat {
	pre := gocv.CountNonZero(mask)
	if pre == 0 {
		return mask.Clone()
	}

	refined, err := runGrabCut(img, mask, opts)
	if err != nil {
		log.Printf("mask refinement failed, keeping source mask: %v", err)
		return mask.Clone()
	}

	if !acceptRefined(pre, gocv.CountNonZero(refined), opts.MinKeepRatio) {
		refined.Close()
		log.Printf("mask refinement shrank foreground below %.0f%%, keeping source mask",
			opts.MinKeepRatio*100)
		return mask.Clone()
	}

	return refined
}

// acceptRefined reports whether a refined foreground count is trustworthy
// relative to the pre-refinement count.
func acceptRefined(pre, post int, minKeepRatio float64) bool {
	if pre == 0 {
		return true
	}
	return float64(post) >= minKeepRatio*float64(pre)
}

// runGrabCut executes one bounded GrabCut refinement. Faults inside gocv are
// recovered and surfaced as errors so the caller can fall back.
func runGrabCut(img, mask gocv.Mat, opts RefineOptions) (out gocv.Mat, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grabcut: %v", r)
		}
	}()

	workImg := img
	workMask := mask
	scaled := false

	longest := img.Cols()
	if img.Rows() > longest {
		longest = img.Rows()
	}
	if opts.MaxSide > 0 && longest > opts.MaxSide {
		scale := float64(opts.MaxSide) / float64(longest)
		size := image.Pt(int(float64(img.Cols())*scale), int(float64(img.Rows())*scale))

		smallImg := gocv.NewMat()
		gocv.Resize(img, &smallImg, size, 0, 0, gocv.InterpolationArea)
		smallMask := gocv.NewMat()
		gocv.Resize(mask, &smallMask, size, 0, 0, gocv.InterpolationNearestNeighbor)

		workImg = smallImg
		workMask = smallMask
		scaled = true
		defer smallImg.Close()
		defer smallMask.Close()
	}

	trimap := buildTrimap(workMask, opts)
	defer trimap.Close()

	// Seed rectangle: the mask's bounding box, or the whole frame when the
	// mask has no contour.
	rect, ok := BoundingBox(workMask)
	if !ok {
		rect = image.Rect(0, 0, workImg.Cols(), workImg.Rows())
	}

	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	gocv.GrabCut(workImg, &trimap, rect, &bgdModel, &fgdModel,
		opts.GrabCutIterations, gocv.GCInitWithMask)

	fg := foregroundOf(trimap)

	if scaled {
		full := gocv.NewMat()
		gocv.Resize(fg, &full, image.Pt(img.Cols(), img.Rows()), 0, 0,
			gocv.InterpolationNearestNeighbor)
		fg.Close()
		return full, nil
	}

	return fg, nil
}

// buildTrimap derives the three-level GrabCut seed from a binary mask:
// an eroded copy marks definite foreground, everything outside a dilated
// copy marks definite background, the band in between is probable
// foreground.
func buildTrimap(mask gocv.Mat, opts RefineOptions) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphRect,
		image.Pt(opts.KernelSize, opts.KernelSize))
	defer kernel.Close()

	eroded := mask.Clone()
	dilated := mask.Clone()
	defer eroded.Close()
	defer dilated.Close()
	for i := 0; i < opts.SeedIterations; i++ {
		gocv.Erode(eroded, &eroded, kernel)
		gocv.Dilate(dilated, &dilated, kernel)
	}

	// dilated -> {0, probable-FG}, eroded -> {0, probable-FG - FG};
	// subtracting turns the eroded core into definite foreground.
	outer := gocv.NewMat()
	defer outer.Close()
	gocv.Threshold(dilated, &outer, 0, labelProbableForeground, gocv.ThresholdBinary)

	core := gocv.NewMat()
	defer core.Close()
	gocv.Threshold(eroded, &core, 0, labelProbableForeground-labelForeground, gocv.ThresholdBinary)

	trimap := gocv.NewMat()
	gocv.Subtract(outer, core, &trimap)
	return trimap
}

// foregroundOf converts a GrabCut result mask back to a binary mask:
// definite and probable foreground become 255, everything else 0.
func foregroundOf(trimap gocv.Mat) gocv.Mat {
	out := gocv.NewMatWithSize(trimap.Rows(), trimap.Cols(), gocv.MatTypeCV8U)
	for y := 0; y < trimap.Rows(); y++ {
		for x := 0; x < trimap.Cols(); x++ {
			v := trimap.GetUCharAt(y, x)
			if v == labelForeground || v == labelProbableForeground {
				out.SetUCharAt(y, x, 255)
			}
		}
	}
	return out
}
