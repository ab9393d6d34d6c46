package tryon

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"watch-tryon/internal/detector"
	"watch-tryon/internal/segmenter"
)

// encodeJPEG turns a Mat into upload bytes for pipeline inputs.
func encodeJPEG(t *testing.T, mat gocv.Mat) []byte {
	t.Helper()
	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	defer buf.Close()
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data
}

func handImageBytes(t *testing.T, w, h int, value uint8) []byte {
	t.Helper()
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	defer mat.Close()
	mat.SetTo(gocv.NewScalar(float64(value), float64(value), float64(value), 0))
	return encodeJPEG(t, mat)
}

// watchImageBytes renders a bright watch-like square on a dark background.
func watchImageBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	defer mat.Close()
	inner := mat.Region(image.Rect(w/4, h/4, 3*w/4, 3*h/4))
	inner.SetTo(gocv.NewScalar(220, 210, 200, 0))
	inner.Close()
	return encodeJPEG(t, mat)
}

func watchDetection(w, h int) segmenter.Detection {
	mask := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	inner := mask.Region(image.Rect(w/4, h/4, 3*w/4, 3*h/4))
	inner.SetTo(gocv.NewScalar(255, 0, 0, 0))
	inner.Close()
	return segmenter.Detection{Label: "watch", Confidence: 0.9, Mask: &mask}
}

func newTestPipeline(hands []detector.HandLandmarks) (*Pipeline, *detector.MockDetector, *segmenter.MockSegmenter) {
	md := detector.NewMockDetector()
	md.SetHands(hands)

	ms := segmenter.NewMockSegmenter()
	ms.SetDetections([]segmenter.Detection{watchDetection(100, 100)})

	return New(md, ms, Config{}), md, ms
}

// changedPixels counts pixels that differ between two same-size BGR Mats.
func changedPixels(t *testing.T, a, b gocv.Mat) int {
	t.Helper()
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)

	return gocv.CountNonZero(gray)
}

func TestTryOn_InvalidImages(t *testing.T) {
	p, _, ms := newTestPipeline([]detector.HandLandmarks{
		detector.WristLandmarks(0.5, 0.6, 0.5, 0.3),
	})
	defer ms.Close()

	watchBytes := watchImageBytes(t, 100, 100)

	t.Run("garbage hand bytes", func(t *testing.T) {
		_, err := p.TryOn([]byte("not an image"), watchBytes)
		if !errors.Is(err, ErrInvalidImage) {
			t.Errorf("expected ErrInvalidImage, got %v", err)
		}
	})

	t.Run("empty hand bytes", func(t *testing.T) {
		_, err := p.TryOn(nil, watchBytes)
		if !errors.Is(err, ErrInvalidImage) {
			t.Errorf("expected ErrInvalidImage, got %v", err)
		}
	})

	t.Run("garbage watch bytes", func(t *testing.T) {
		handBytes := handImageBytes(t, 200, 200, 30)
		_, err := p.TryOn(handBytes, []byte("also not an image"))
		if !errors.Is(err, ErrInvalidImage) {
			t.Errorf("expected ErrInvalidImage, got %v", err)
		}
	})
}

func TestTryOn_NoWristFound(t *testing.T) {
	p, _, ms := newTestPipeline(nil)
	defer ms.Close()

	_, err := p.TryOn(handImageBytes(t, 200, 200, 30), watchImageBytes(t, 100, 100))
	if !errors.Is(err, ErrNoWristFound) {
		t.Errorf("expected ErrNoWristFound, got %v", err)
	}
}

func TestTryOn_DetectorError(t *testing.T) {
	p, md, ms := newTestPipeline(nil)
	defer ms.Close()
	md.SetError(errors.New("subprocess died"))

	_, err := p.TryOn(handImageBytes(t, 200, 200, 30), watchImageBytes(t, 100, 100))
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrNoWristFound) {
		t.Error("a detector fault must not be reported as no-wrist")
	}
}

func TestTryOn_CompositesOntoWrist(t *testing.T) {
	p, _, ms := newTestPipeline([]detector.HandLandmarks{
		detector.WristLandmarks(0.5, 0.6, 0.5, 0.3),
	})
	defer ms.Close()

	result, err := p.TryOn(handImageBytes(t, 200, 200, 30), watchImageBytes(t, 100, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer result.Close()

	if result.Composite.Cols() != 200 || result.Composite.Rows() != 200 {
		t.Errorf("composite must match the hand image, got %dx%d",
			result.Composite.Cols(), result.Composite.Rows())
	}

	if changedPixels(t, result.Original, result.Composite) == 0 {
		t.Error("expected the composite to differ from the original")
	}

	if len(result.Wrists) != 1 {
		t.Fatalf("expected 1 wrist, got %d", len(result.Wrists))
	}
	// Wrist pixel (100, 120) shifted 35% of 60px toward the forearm.
	if result.Wrists[0].Position != image.Pt(100, 141) {
		t.Errorf("expected wrist (100,141), got %v", result.Wrists[0].Position)
	}
	if result.Wrists[0].WearAngle != 0 {
		t.Errorf("expected wear angle 0, got %f", result.Wrists[0].WearAngle)
	}
}

func TestTryOn_TwoWrists(t *testing.T) {
	p, _, ms := newTestPipeline([]detector.HandLandmarks{
		detector.WristLandmarks(0.25, 0.6, 0.25, 0.3),
		detector.WristLandmarks(0.75, 0.6, 0.75, 0.3),
	})
	defer ms.Close()

	result, err := p.TryOn(handImageBytes(t, 400, 200, 30), watchImageBytes(t, 100, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer result.Close()

	if len(result.Wrists) != 2 {
		t.Fatalf("expected 2 wrists, got %d", len(result.Wrists))
	}
	if changedPixels(t, result.Original, result.Composite) == 0 {
		t.Error("expected the composite to differ from the original")
	}
}

func TestTryOn_SegmenterErrorFallsBack(t *testing.T) {
	p, _, ms := newTestPipeline([]detector.HandLandmarks{
		detector.WristLandmarks(0.5, 0.6, 0.5, 0.3),
	})
	defer ms.Close()
	ms.SetError(errors.New("segmenter unavailable"))

	result, err := p.TryOn(handImageBytes(t, 200, 200, 30), watchImageBytes(t, 100, 100))
	if err != nil {
		t.Fatalf("expected the fallback mask to carry the request, got %v", err)
	}
	defer result.Close()

	if changedPixels(t, result.Original, result.Composite) == 0 {
		t.Error("expected a composite even without detections")
	}
}

func TestExtractHand(t *testing.T) {
	p, _, ms := newTestPipeline([]detector.HandLandmarks{
		detector.WristLandmarks(0.5, 0.6, 0.5, 0.3),
	})
	defer ms.Close()

	info, err := p.ExtractHand(handImageBytes(t, 200, 200, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.Width != 200 || info.Height != 200 {
		t.Errorf("expected 200x200, got %dx%d", info.Width, info.Height)
	}
	if len(info.Wrists) != 1 {
		t.Fatalf("expected 1 wrist, got %d", len(info.Wrists))
	}
	if info.Wrists[0].Position != image.Pt(100, 141) {
		t.Errorf("expected wrist (100,141), got %v", info.Wrists[0].Position)
	}

	t.Run("no hands", func(t *testing.T) {
		empty, _, ems := newTestPipeline(nil)
		defer ems.Close()

		_, err := empty.ExtractHand(handImageBytes(t, 200, 200, 30))
		if !errors.Is(err, ErrNoWristFound) {
			t.Errorf("expected ErrNoWristFound, got %v", err)
		}
	})
}

func TestExtractWatch(t *testing.T) {
	p, _, ms := newTestPipeline(nil)
	defer ms.Close()

	info, err := p.ExtractWatch(watchImageBytes(t, 100, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.Width != 100 || info.Height != 100 {
		t.Errorf("expected 100x100, got %dx%d", info.Width, info.Height)
	}
	if info.TotalArea != 100*100 {
		t.Errorf("expected total area 10000, got %d", info.TotalArea)
	}
	if info.MaskArea == 0 {
		t.Error("expected a non-empty watch mask")
	}
	if info.Coverage <= 0 || info.Coverage > 1 {
		t.Errorf("expected coverage in (0, 1], got %f", info.Coverage)
	}
	if info.Bounds.Empty() {
		t.Error("expected non-empty bounds")
	}

	t.Run("invalid bytes", func(t *testing.T) {
		_, err := p.ExtractWatch([]byte("nope"))
		if !errors.Is(err, ErrInvalidImage) {
			t.Errorf("expected ErrInvalidImage, got %v", err)
		}
	})
}
