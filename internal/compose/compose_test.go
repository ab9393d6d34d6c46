package compose

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"watch-tryon/internal/placement"
	"watch-tryon/internal/watchmask"
)

func uniformMat(w, h int, value uint8) gocv.Mat {
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(float64(value), float64(value), float64(value), 0))
	return mat
}

func uniformMask(w, h int, value uint8) gocv.Mat {
	mask := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	mask.SetTo(gocv.NewScalar(float64(value), 0, 0, 0))
	return mask
}

// sameImage reports whether two BGR Mats are pixel-identical.
func sameImage(a, b gocv.Mat) bool {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)

	return gocv.CountNonZero(gray) == 0
}

func TestBlend(t *testing.T) {
	t.Run("opaque layer replaces pixels", func(t *testing.T) {
		hand := uniformMat(50, 50, 10)
		defer hand.Close()
		layer := uniformMat(10, 10, 200)
		defer layer.Close()
		alpha := uniformMask(10, 10, 255)
		defer alpha.Close()

		out := Blend(hand, layer, alpha, image.Pt(5, 5))
		defer out.Close()

		if got := out.GetUCharAt(7, 7*3); got != 200 {
			t.Errorf("expected layer value 200 inside the overlay, got %d", got)
		}
		if got := out.GetUCharAt(0, 0); got != 10 {
			t.Errorf("expected hand value 10 outside the overlay, got %d", got)
		}
		if got := hand.GetUCharAt(7, 7*3); got != 10 {
			t.Error("hand image must never be mutated")
		}
	})

	t.Run("zero alpha leaves pixels alone", func(t *testing.T) {
		hand := uniformMat(50, 50, 10)
		defer hand.Close()
		layer := uniformMat(10, 10, 200)
		defer layer.Close()
		alpha := uniformMask(10, 10, 0)
		defer alpha.Close()

		out := Blend(hand, layer, alpha, image.Pt(5, 5))
		defer out.Close()

		if !sameImage(hand, out) {
			t.Error("expected an unchanged composite under zero alpha")
		}
	})

	t.Run("half alpha mixes values", func(t *testing.T) {
		hand := uniformMat(50, 50, 10)
		defer hand.Close()
		layer := uniformMat(10, 10, 200)
		defer layer.Close()
		alpha := uniformMask(10, 10, 128)
		defer alpha.Close()

		out := Blend(hand, layer, alpha, image.Pt(5, 5))
		defer out.Close()

		// 200*(128/255) + 10*(127/255) rounds to 105.
		if got := out.GetUCharAt(7, 7*3); got != 105 {
			t.Errorf("expected blended value 105, got %d", got)
		}
	})

	t.Run("layer past the right edge is clipped", func(t *testing.T) {
		hand := uniformMat(50, 50, 10)
		defer hand.Close()
		layer := uniformMat(10, 10, 200)
		defer layer.Close()
		alpha := uniformMask(10, 10, 255)
		defer alpha.Close()

		out := Blend(hand, layer, alpha, image.Pt(45, 45))
		defer out.Close()

		if got := out.GetUCharAt(47, 47*3); got != 200 {
			t.Errorf("expected clipped overlay applied, got %d", got)
		}
		if got := out.GetUCharAt(44, 44*3); got != 10 {
			t.Errorf("expected hand value above the overlay, got %d", got)
		}
	})

	t.Run("negative offset is clipped", func(t *testing.T) {
		hand := uniformMat(50, 50, 10)
		defer hand.Close()
		layer := uniformMat(10, 10, 200)
		defer layer.Close()
		alpha := uniformMask(10, 10, 255)
		defer alpha.Close()

		out := Blend(hand, layer, alpha, image.Pt(-5, -5))
		defer out.Close()

		if got := out.GetUCharAt(2, 2*3); got != 200 {
			t.Errorf("expected clipped overlay applied at the origin, got %d", got)
		}
		if got := out.GetUCharAt(8, 8*3); got != 10 {
			t.Errorf("expected hand value past the overlay, got %d", got)
		}
	})

	t.Run("fully outside layer is a no-op", func(t *testing.T) {
		hand := uniformMat(50, 50, 10)
		defer hand.Close()
		layer := uniformMat(10, 10, 200)
		defer layer.Close()
		alpha := uniformMask(10, 10, 255)
		defer alpha.Close()

		out := Blend(hand, layer, alpha, image.Pt(-100, -100))
		defer out.Close()

		if !sameImage(hand, out) {
			t.Error("expected an unchanged composite for an off-image layer")
		}
	})
}

func TestRenderLayer(t *testing.T) {
	t.Run("empty region", func(t *testing.T) {
		watch := uniformMat(100, 100, 200)
		defer watch.Close()

		mask := uniformMask(100, 100, 0)
		region := watchmask.Region{Mask: mask}
		defer region.Close()

		_, _, err := RenderLayer(watch, region, placement.Plan{})
		if !errors.Is(err, ErrEmptyLayer) {
			t.Errorf("expected ErrEmptyLayer, got %v", err)
		}
	})

	t.Run("unrotated layer matches target size", func(t *testing.T) {
		watch := uniformMat(100, 100, 200)
		defer watch.Close()

		mask := uniformMask(100, 100, 0)
		inner := mask.Region(image.Rect(20, 20, 80, 80))
		inner.SetTo(gocv.NewScalar(255, 0, 0, 0))
		inner.Close()
		region := watchmask.Region{Mask: mask, Bounds: image.Rect(20, 20, 80, 80)}
		defer region.Close()

		plan := placement.Plan{
			TargetSize: image.Pt(30, 30),
			LayerSize:  image.Pt(30, 30),
		}

		layer, alpha, err := RenderLayer(watch, region, plan)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer layer.Close()
		defer alpha.Close()

		if layer.Cols() != 30 || layer.Rows() != 30 {
			t.Errorf("expected 30x30 layer, got %dx%d", layer.Cols(), layer.Rows())
		}
		if alpha.Cols() != 30 || alpha.Rows() != 30 {
			t.Errorf("expected 30x30 alpha, got %dx%d", alpha.Cols(), alpha.Rows())
		}
		if got := layer.GetUCharAt(15, 15*3); got != 200 {
			t.Errorf("expected masked watch value 200 at center, got %d", got)
		}
		if got := alpha.GetUCharAt(15, 15); got != 255 {
			t.Errorf("expected opaque alpha at center, got %d", got)
		}
	})

	t.Run("rotated layer fills the expanded canvas", func(t *testing.T) {
		watch := uniformMat(100, 100, 200)
		defer watch.Close()

		mask := uniformMask(100, 100, 0)
		inner := mask.Region(image.Rect(10, 30, 90, 70))
		inner.SetTo(gocv.NewScalar(255, 0, 0, 0))
		inner.Close()
		region := watchmask.Region{Mask: mask, Bounds: image.Rect(10, 30, 90, 70)}
		defer region.Close()

		target := image.Pt(60, 30)
		plan := placement.Plan{
			TargetSize: target,
			Rotation:   45,
			LayerSize:  placement.EnclosingSize(target, 45),
		}

		layer, alpha, err := RenderLayer(watch, region, plan)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer layer.Close()
		defer alpha.Close()

		if layer.Cols() != plan.LayerSize.X || layer.Rows() != plan.LayerSize.Y {
			t.Errorf("expected %v layer, got %dx%d",
				plan.LayerSize, layer.Cols(), layer.Rows())
		}
		if alpha.Cols() != plan.LayerSize.X || alpha.Rows() != plan.LayerSize.Y {
			t.Errorf("expected %v alpha, got %dx%d",
				plan.LayerSize, alpha.Cols(), alpha.Rows())
		}

		// The rotated content stays centered.
		cy := plan.LayerSize.Y / 2
		cx := plan.LayerSize.X / 2
		if got := alpha.GetUCharAt(cy, cx); got == 0 {
			t.Error("expected opaque alpha at the canvas center")
		}
		// Canvas corners are exposed by the rotation.
		if got := alpha.GetUCharAt(0, 0); got != 0 {
			t.Errorf("expected transparent corner, got %d", got)
		}
	})
}

func TestRotateExpanded(t *testing.T) {
	src := uniformMask(20, 10, 255)
	defer src.Close()

	canvas := placement.EnclosingSize(image.Pt(20, 10), 90)
	out := rotateExpanded(src, 90, canvas)
	defer out.Close()

	if out.Cols() != canvas.X || out.Rows() != canvas.Y {
		t.Fatalf("expected %v canvas, got %dx%d", canvas, out.Cols(), out.Rows())
	}
	if got := out.GetUCharAt(canvas.Y/2, canvas.X/2); got == 0 {
		t.Error("expected rotated content at the canvas center")
	}
}
