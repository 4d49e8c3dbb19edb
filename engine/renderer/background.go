package renderer

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// BackgroundSize is the edge length of the background texture.
const BackgroundSize = 1024

// LoadBackground decodes a PNG, JPEG, BMP or WebP file and scales it to a size × size RGBA image.
//
// Parameters:
//   - path: the image file
//   - size: the output edge length
//
// Returns:
//   - *image.RGBA: the scaled image
//   - error: an error if the file cannot be opened or decoded
func LoadBackground(path string, size int) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open background %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode background %s: %w", path, err)
	}
	return scaleBackground(src, size), nil
}

// scaleBackground resamples src to a size × size RGBA image with Catmull-Rom filtering.
func scaleBackground(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// GradientBackground renders a vertical gradient from dark blue at the top to black at the bottom.
//
// Parameters:
//   - size: the output edge length
//
// Returns:
//   - *image.RGBA: the gradient image
func GradientBackground(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	top := color.RGBA{R: 0x35, G: 0x28, B: 0x79, A: 0xff}
	for y := 0; y < size; y++ {
		t := 1.0
		if size > 1 {
			t = 1 - float64(y)/float64(size-1)
		}
		c := color.RGBA{
			R: uint8(float64(top.R) * t),
			G: uint8(float64(top.G) * t),
			B: uint8(float64(top.B) * t),
			A: 0xff,
		}
		draw.Draw(img, image.Rect(0, y, size, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
	return img
}
