package compose

import (
	"image"

	"gocv.io/x/gocv"
)

// Blend alpha-blends a watch layer onto the hand image at the given top-left
// offset and returns a new composite; the hand image is never mutated.
//
// The layer and its mask are clipped against the hand bounds on all four
// sides. A clip that leaves no area returns an unchanged copy of the hand
// image. Per pixel: out = watch*a + hand*(1-a), a = mask/255.
func Blend(hand, layer, alpha gocv.Mat, topLeft image.Point) gocv.Mat {
	result := hand.Clone()

	handW := hand.Cols()
	handH := hand.Rows()
	layerW := layer.Cols()
	layerH := layer.Rows()

	x := topLeft.X
	y := topLeft.Y

	// Clip region within the layer's own coordinates.
	srcX := 0
	srcY := 0

	if x < 0 {
		srcX = -x
		layerW += x
		x = 0
	}
	if y < 0 {
		srcY = -y
		layerH += y
		y = 0
	}
	if x+layerW > handW {
		layerW = handW - x
	}
	if y+layerH > handH {
		layerH = handH - y
	}

	if layerW <= 0 || layerH <= 0 {
		return result
	}

	srcRect := image.Rect(srcX, srcY, srcX+layerW, srcY+layerH)
	dstRect := image.Rect(x, y, x+layerW, y+layerH)

	layerClip := layer.Region(srcRect)
	defer layerClip.Close()
	alphaClip := alpha.Region(srcRect)
	defer alphaClip.Close()
	roi := result.Region(dstRect)
	defer roi.Close()

	channels := roi.Channels()
	for row := 0; row < layerH; row++ {
		for col := 0; col < layerW; col++ {
			a := float64(alphaClip.GetUCharAt(row, col)) / 255.0
			if a == 0 {
				continue
			}
			for c := 0; c < channels; c++ {
				idx := col*channels + c
				wv := float64(layerClip.GetUCharAt(row, idx))
				hv := float64(roi.GetUCharAt(row, idx))
				roi.SetUCharAt(row, idx, uint8(wv*a+hv*(1-a)+0.5))
			}
		}
	}

	return result
}
