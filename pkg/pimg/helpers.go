package pimg

// A few helper routines for golang's image libraries

import(
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"  // replace by "image/draw" at some point
)

func RectCenter(b image.Rectangle) image.Point {
	return image.Point{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

// Downscale shrinks the image so its longest side is maxDim pixels,
// with Catmull-Rom interpolation. Images already small enough (or a
// maxDim of zero) come back untouched.
func Downscale(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	longest := b.Dx()
	if b.Dy() > longest { longest = b.Dy() }
	if maxDim <= 0 || longest <= maxDim {
		return src
	}

	scale := float64(maxDim) / float64(longest)
	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	if w < 1 { w = 1 }
	if h < 1 { h = 1 }

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// BoxBlurGray smooths with a (2*radius+1)-wide box filter, run as two
// separable passes, clamping at the image edge. Intensity comparisons
// for binary descriptors get taken on the smoothed image, so single
// noisy pixels don't flip bits.
func BoxBlurGray(src *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	n := float64(2*radius + 1)

	clamp := func(v, lo, hi int) int {
		if v < lo { return lo }
		if v > hi { return hi }
		return v
	}

	// Horizontal pass into tmp, vertical pass into out.
	tmp := image.NewGray(b)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			sum := 0
			for dx:=-radius; dx<=radius; dx++ {
				sum += int(src.GrayAt(b.Min.X+clamp(x+dx, 0, w-1), b.Min.Y+y).Y)
			}
			tmp.SetGray(b.Min.X+x, b.Min.Y+y, grayU8(float64(sum)/n))
		}
	}

	out := image.NewGray(b)
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			sum := 0
			for dy:=-radius; dy<=radius; dy++ {
				sum += int(tmp.GrayAt(b.Min.X+x, b.Min.Y+clamp(y+dy, 0, h-1)).Y)
			}
			out.SetGray(b.Min.X+x, b.Min.Y+y, grayU8(float64(sum)/n))
		}
	}

	return out
}

func grayU8(v float64) color.Gray {
	return color.Gray{Y: uint8(v + 0.5)}
}
