// Package hand derives wrist placement anchors from detected hand landmarks.
package hand

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"watch-tryon/internal/detector"
	"watch-tryon/internal/maskops"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// wristShiftRatio moves the anchor from the palm crease toward the forearm,
// where a watch band actually sits, as a fraction of the wrist-to-middle-MCP
// distance.
const wristShiftRatio = 0.35

// Observation is everything the placement stage needs about one detected
// hand: the adjusted wrist anchor, the wear angle, and a coarse silhouette
// mask co-extensive with the source image.
type Observation struct {
	// Wrist is the adjusted anchor position, in pixels.
	Wrist image.Point

	// WearAngle is the rotation in degrees, normalized to (-180, 180],
	// that aligns a watch band with the forearm axis. Placement consults
	// this angle.
	WearAngle float64

	// EdgeAngle is a secondary angle derived from the index-MCP edge of the
	// palm. It is reported for diagnostics but never drives placement.
	EdgeAngle float64

	// Silhouette is the filled convex hull of the 21 landmarks.
	Silhouette gocv.Mat
}

// Close releases the observation's silhouette mask.
func (o *Observation) Close() {
	if !o.Silhouette.Empty() {
		o.Silhouette.Close()
	}
}

// Options controls observation extraction.
type Options struct {
	// RefineSilhouette tightens the convex-hull silhouette against skin
	// boundaries using the shared mask refinement. The silhouette is
	// diagnostic output, so this defaults to off.
	RefineSilhouette bool
}

// Extract converts raw landmark sets into one Observation per detected hand.
// An empty input yields an empty (non-error) result: "no hands found" is a
// valid detector answer, not a fault.
func Extract(img gocv.Mat, hands []detector.HandLandmarks, opts Options) []Observation {
	w := img.Cols()
	h := img.Rows()

	observations := make([]Observation, 0, len(hands))
	for i := range hands {
		lm := &hands[i]

		rawWrist := lm.Pixel(detector.Wrist, w, h)
		middleMCP := lm.Pixel(detector.MiddleMCP, w, h)
		indexMCP := lm.Pixel(detector.IndexMCP, w, h)

		wrist := AdjustWrist(rawWrist, middleMCP)

		silhouette := silhouetteMask(lm.PixelPoints(w, h), w, h)
		if opts.RefineSilhouette {
			refined := maskops.Refine(img, silhouette, maskops.HandRefineOptions())
			silhouette.Close()
			silhouette = refined
		}

		observations = append(observations, Observation{
			Wrist:      wrist,
			WearAngle:  WearAngle(wrist, middleMCP),
			EdgeAngle:  edgeAngle(indexMCP, middleMCP),
			Silhouette: silhouette,
		})
	}

	return observations
}

// AdjustWrist moves the raw wrist landmark away from the palm along the
// wrist-to-middle-MCP axis by wristShiftRatio of that vector's length.
// A zero-length vector leaves the raw position unchanged.
func AdjustWrist(wrist, middleMCP image.Point) image.Point {
	dx := float64(middleMCP.X - wrist.X)
	dy := float64(middleMCP.Y - wrist.Y)

	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return wrist
	}

	// Truncate the shifted coordinate, not the offset, so fractional
	// offsets round identically in both directions of each axis.
	shift := length * wristShiftRatio
	return image.Pt(
		int(float64(wrist.X)-dx/length*shift),
		int(float64(wrist.Y)-dy/length*shift),
	)
}

// WearAngle computes the watch rotation for a wrist: the angle of the
// wrist-to-middle-MCP vector plus 90 degrees (watches sit perpendicular to
// the forearm axis), normalized to (-180, 180].
func WearAngle(wrist, middleMCP image.Point) float64 {
	dx := float64(middleMCP.X - wrist.X)
	dy := float64(middleMCP.Y - wrist.Y)
	angle := NormalizeAngle(math.Atan2(dy, dx) * 180 / math.Pi)
	return NormalizeAngle(angle + 90)
}

// edgeAngle is the palm-edge angle from the index MCP toward the middle MCP,
// plus 90 degrees, normalized.
func edgeAngle(indexMCP, middleMCP image.Point) float64 {
	dx := float64(middleMCP.X - indexMCP.X)
	dy := float64(middleMCP.Y - indexMCP.Y)
	return NormalizeAngle(math.Atan2(dy, dx)*180/math.Pi + 90)
}

// NormalizeAngle folds an angle in degrees into (-180, 180].
func NormalizeAngle(angle float64) float64 {
	for angle > 180 {
		angle -= 360
	}
	for angle <= -180 {
		angle += 360
	}
	return angle
}

// silhouetteMask fills the convex hull of the landmark points into a mask
// the size of the source image.
func silhouetteMask(points []image.Point, w, h int) gocv.Mat {
	mask := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)

	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()

	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(pv, &hull, false, true)

	hullPoints := make([]image.Point, 0, hull.Rows())
	for i := 0; i < hull.Rows(); i++ {
		v := hull.GetVeciAt(i, 0)
		if len(v) >= 2 {
			hullPoints = append(hullPoints, image.Pt(int(v[0]), int(v[1])))
		}
	}
	if len(hullPoints) < 3 {
		return mask
	}

	pts := gocv.NewPointsVectorFromPoints([][]image.Point{hullPoints})
	defer pts.Close()
	gocv.FillPoly(&mask, pts, white)

	return mask
}
