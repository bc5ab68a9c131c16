// Package frame defines the grayscale image buffer the detection pipeline
// operates on, and the loaders that turn a captured image into one.
package frame

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
	"gocv.io/x/gocv"
)

// Frame is a single-channel 8-bit grayscale image: width*height == len(Pix),
// no row padding. This is the "borrowed read-only by engine" Frame entity.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed frame of the given size.
func New(width, height int) Frame {
	return Frame{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the pixel value at (x, y). Out-of-bounds reads return 0.
func (f Frame) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Pix[y*f.Width+x]
}

// Set writes the pixel value at (x, y), if in bounds.
func (f Frame) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	f.Pix[y*f.Width+x] = v
}

// Clone returns an independent copy of the frame, so callers can mutate or
// annotate it (e.g. debug overlays) without touching the original buffer.
func (f Frame) Clone() Frame {
	cp := make([]uint8, len(f.Pix))
	copy(cp, f.Pix)
	return Frame{Width: f.Width, Height: f.Height, Pix: cp}
}

// Equal reports whether two frames have identical dimensions and pixels.
func (f Frame) Equal(other Frame) bool {
	if f.Width != other.Width || f.Height != other.Height {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

// FromImage converts a decoded image.Image to a grayscale Frame using
// standard luminance weights, ahead of the pixel-level operations the
// detection pipeline runs on the result.
func FromImage(src image.Image) Frame {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	f := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			f.Pix[y*w+x] = uint8((19595*(r>>8) + 38470*(g>>8) + 7471*(b>>8)) >> 16)
		}
	}
	return f
}

// Load decodes an image file (PNG, JPEG, or TIFF) and converts it to a
// grayscale Frame.
func Load(path string) (Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to open frame: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame %s: %w", filepath.Base(path), err)
	}

	return FromImage(img), nil
}

// IsTIFF reports whether path has a TIFF extension, for callers that want to
// branch on DPI/metadata extraction before loading a frame.
func IsTIFF(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tiff" || ext == ".tif"
}

// ToMat converts the frame to a single-channel OpenCV Mat, for stages that
// lean on gocv (flattening, thresholding, distance transform). The caller
// owns the returned Mat and must Close it.
func (f Frame) ToMat() gocv.Mat {
	mat := gocv.NewMatWithSize(f.Height, f.Width, gocv.MatTypeCV8UC1)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			mat.SetUCharAt(y, x, f.Pix[y*f.Width+x])
		}
	}
	return mat
}

// FromMat converts a single-channel 8-bit Mat back into a Frame.
func FromMat(mat gocv.Mat) Frame {
	h, w := mat.Rows(), mat.Cols()
	f := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Pix[y*w+x] = mat.GetUCharAt(y, x)
		}
	}
	return f
}
