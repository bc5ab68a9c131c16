// Package flatten implements background-illumination flattening: the first
// stage of the detection pipeline, which removes slow illumination trends
// while preserving the 70-90px circular features spec.md targets.
package flatten

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"stereogrid/internal/frame"
)

// KernelRadius returns the blur kernel radius for a nominal circle diameter,
// following spec.md 4.1: sigma = 0.8*d_nom, radius ~= 3*sigma. The kernel
// ends up ~5x the feature diameter so illumination varying over hundreds of
// pixels is removed while individual circles are preserved.
func KernelRadius(dNom float64) int {
	sigma := 0.8 * dNom
	r := int(math.Round(3 * sigma))
	if r < 3 {
		r = 3
	}
	return r
}

// Flatten subtracts a heavily-blurred copy of the frame from itself and adds
// 128, saturating to [0, 255]: a pixel equal to its local background maps to
// mid-gray. dNom is the nominal circle diameter in pixels.
func Flatten(f frame.Frame, dNom float64) frame.Frame {
	src := f.ToMat()
	defer src.Close()

	k := 2*KernelRadius(dNom) + 1 // full kernel size, odd as gocv.GaussianBlur requires
	blurred := gocv.NewMat()
	defer blurred.Close()
	sigma := 0.8 * dNom
	gocv.GaussianBlur(src, &blurred, image.Point{X: k, Y: k}, sigma, sigma, gocv.BorderReplicate)

	flattened := frame.New(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			orig := int(src.GetUCharAt(y, x))
			bg := int(blurred.GetUCharAt(y, x))
			// Additive saturation: bias-removed signal is centered on mid-gray
			// so both darker and brighter local deviations survive clamping.
			v := orig - bg + 128
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			flattened.Set(x, y, uint8(v))
		}
	}
	return flattened
}
