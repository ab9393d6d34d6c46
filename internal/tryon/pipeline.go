// Package tryon orchestrates the virtual try-on pipeline: hand observation,
// watch mask building, placement, and compositing.
package tryon

import (
	"errors"
	"fmt"
	"image"
	"log"

	"gocv.io/x/gocv"

	"watch-tryon/internal/compose"
	"watch-tryon/internal/detector"
	"watch-tryon/internal/hand"
	"watch-tryon/internal/maskops"
	"watch-tryon/internal/placement"
	"watch-tryon/internal/segmenter"
	"watch-tryon/internal/watchmask"
)

// ErrInvalidImage signals that input bytes could not be decoded.
var ErrInvalidImage = errors.New("image data could not be decoded")

// ErrNoWristFound signals that the landmark detector saw no hands. This is
// user-actionable: the photo needs a clearly visible wrist.
var ErrNoWristFound = errors.New("no wrist found in the hand image")

// Config controls pipeline behavior.
type Config struct {
	// RefineSilhouette forwards to hand.Options; the silhouette is
	// diagnostic output, so the extra refinement pass defaults to off.
	RefineSilhouette bool
}

// Pipeline runs the try-on flow for one hand image and one watch image.
// It holds only the one-time detector handles; every run is a pure function
// of its inputs.
type Pipeline struct {
	hands   detector.Detector
	watches segmenter.Segmenter
	config  Config
}

// New creates a Pipeline over the given detector adapters.
func New(hands detector.Detector, watches segmenter.Segmenter, config Config) *Pipeline {
	return &Pipeline{
		hands:   hands,
		watches: watches,
		config:  config,
	}
}

// WristInfo reports one detected wrist for the informational endpoints.
type WristInfo struct {
	Position  image.Point
	WearAngle float64
}

// Result is a completed try-on: the composite plus the untouched original
// hand image, with per-wrist diagnostics. Close releases both Mats.
type Result struct {
	Composite gocv.Mat
	Original  gocv.Mat
	Wrists    []WristInfo
}

// Close releases the result's image buffers.
func (r *Result) Close() {
	if !r.Composite.Empty() {
		r.Composite.Close()
	}
	if !r.Original.Empty() {
		r.Original.Close()
	}
}

// TryOn composites the watch onto every wrist detected in the hand image.
//
// Fatal conditions are ErrInvalidImage and ErrNoWristFound. A wrist whose
// placement fails (empty watch region) is skipped and logged; the remaining
// wrists still get a watch, and a request where every wrist is skipped
// returns the hand image unchanged.
func (p *Pipeline) TryOn(handBytes, watchBytes []byte) (*Result, error) {
	handImg, err := decodeImage(handBytes)
	if err != nil {
		return nil, fmt.Errorf("hand image: %w", err)
	}

	watchImg, err := decodeImage(watchBytes)
	if err != nil {
		handImg.Close()
		return nil, fmt.Errorf("watch image: %w", err)
	}
	defer watchImg.Close()

	observations, err := p.observe(handImg)
	if err != nil {
		handImg.Close()
		return nil, err
	}
	defer closeObservations(observations)

	region := p.buildRegion(watchImg)
	defer region.Close()

	composite := handImg.Clone()
	wrists := make([]WristInfo, 0, len(observations))

	for i := range observations {
		obs := &observations[i]
		wrists = append(wrists, WristInfo{Position: obs.Wrist, WearAngle: obs.WearAngle})

		plan, err := placement.Compute(region.Bounds, obs.Wrist, obs.WearAngle,
			handImg.Cols(), handImg.Rows())
		if err != nil {
			log.Printf("skipping wrist %d: %v", i, err)
			continue
		}

		layer, alpha, err := compose.RenderLayer(watchImg, region, plan)
		if err != nil {
			log.Printf("skipping wrist %d: %v", i, err)
			continue
		}

		blended := compose.Blend(composite, layer, alpha, plan.TopLeft)
		layer.Close()
		alpha.Close()

		composite.Close()
		composite = blended
	}

	return &Result{
		Composite: composite,
		Original:  handImg,
		Wrists:    wrists,
	}, nil
}

// HandInfo is the payload of the hand extraction endpoint.
type HandInfo struct {
	Wrists []WristInfo
	Width  int
	Height int
}

// ExtractHand detects wrists and reports their anchors and angles without
// compositing anything.
func (p *Pipeline) ExtractHand(handBytes []byte) (*HandInfo, error) {
	handImg, err := decodeImage(handBytes)
	if err != nil {
		return nil, fmt.Errorf("hand image: %w", err)
	}
	defer handImg.Close()

	observations, err := p.observe(handImg)
	if err != nil {
		return nil, err
	}
	defer closeObservations(observations)

	info := &HandInfo{
		Wrists: make([]WristInfo, 0, len(observations)),
		Width:  handImg.Cols(),
		Height: handImg.Rows(),
	}
	for i := range observations {
		info.Wrists = append(info.Wrists, WristInfo{
			Position:  observations[i].Wrist,
			WearAngle: observations[i].WearAngle,
		})
	}

	return info, nil
}

// WatchInfo is the payload of the watch extraction endpoint.
type WatchInfo struct {
	Coverage  float64
	MaskArea  int
	TotalArea int
	Bounds    image.Rectangle
	Width     int
	Height    int
}

// ExtractWatch builds the refined watch mask and reports its statistics.
func (p *Pipeline) ExtractWatch(watchBytes []byte) (*WatchInfo, error) {
	watchImg, err := decodeImage(watchBytes)
	if err != nil {
		return nil, fmt.Errorf("watch image: %w", err)
	}
	defer watchImg.Close()

	region := p.buildRegion(watchImg)
	defer region.Close()

	return &WatchInfo{
		Coverage:  maskops.Coverage(region.Mask),
		MaskArea:  gocv.CountNonZero(region.Mask),
		TotalArea: watchImg.Cols() * watchImg.Rows(),
		Bounds:    region.Bounds,
		Width:     watchImg.Cols(),
		Height:    watchImg.Rows(),
	}, nil
}

// observe runs the landmark detector and derives observations. Zero hands
// is the fatal ErrNoWristFound; a detector transport failure is wrapped.
func (p *Pipeline) observe(handImg gocv.Mat) ([]hand.Observation, error) {
	landmarks, err := p.hands.Detect(&handImg)
	if err != nil {
		return nil, fmt.Errorf("hand detection: %w", err)
	}

	observations := hand.Extract(handImg, landmarks, hand.Options{
		RefineSilhouette: p.config.RefineSilhouette,
	})
	if len(observations) == 0 {
		return nil, ErrNoWristFound
	}
	return observations, nil
}

// buildRegion runs the watch segmenter and mask builder. Segmenter failures
// are absorbed: the builder's interior fallback takes over, matching the
// policy that watch detection is best-effort.
func (p *Pipeline) buildRegion(watchImg gocv.Mat) watchmask.Region {
	detections, err := p.watches.Detect(&watchImg)
	if err != nil {
		log.Printf("watch detection failed, using fallback mask: %v", err)
		detections = nil
	}
	defer func() {
		for i := range detections {
			detections[i].Close()
		}
	}()

	return watchmask.Build(watchImg, detections)
}

func closeObservations(observations []hand.Observation) {
	for i := range observations {
		observations[i].Close()
	}
}

// decodeImage turns raw upload bytes into a BGR Mat.
func decodeImage(data []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if err == nil {
		mat.Close()
	}
	return gocv.Mat{}, ErrInvalidImage
}
