package pimg

// Per-pixel color primitives used by the stitching pipeline. All of
// them are stateless: same image in, same image out.

import(
	"image"
	"image/color"
	"image/draw"
)

const(
	grayWeightR = 0.2989
	grayWeightG = 0.5870
	grayWeightB = 0.1140
)

// ColToGrayF64 maps a color to a gray value in the range [0, 255]. If
// we had more of a handle on the color, maybe we'd map it to XYZ and
// pick out the luminance; but this works just fine.
func ColToGrayF64(c color.Color) float64 {
	r, g, b, _ := c.RGBA() // channel values in range [0, 0xFFFF]
	gray := (float64(r)*grayWeightR + float64(g)*grayWeightG + float64(b)*grayWeightB) / 257.0
	if gray > 255 { gray = 255 }

	return gray
}

// ToRGBA returns the image as *image.RGBA, converting only when it has
// to.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y:=b.Min.Y; y<b.Max.Y; y++ {
		for x:=b.Min.X; x<b.Max.X; x++ {
			gray.SetGray(x, y, color.Gray{Y: uint8(ColToGrayF64(img.At(x, y)) + 0.5)})
		}
	}
	return gray
}

// GrayMean is the average gray level of the image, in [0, 255].
func GrayMean(img image.Image) float64 {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0
	}

	sum := 0.0
	for y:=b.Min.Y; y<b.Max.Y; y++ {
		for x:=b.Min.X; x<b.Max.X; x++ {
			sum += ColToGrayF64(img.At(x, y))
		}
	}
	return sum / float64(b.Dx()*b.Dy())
}

// NormalizeBrightness shifts all three color channels by the same
// amount, so the image's gray mean lands on targetMean. Alpha is left
// alone, as are fully transparent pixels - empty regions must stay
// empty.
func NormalizeBrightness(img image.Image, targetMean float64) *image.RGBA {
	delta := GrayMean(img) - targetMean

	b := img.Bounds()
	out := image.NewRGBA(b)
	for y:=b.Min.Y; y<b.Max.Y; y++ {
		for x:=b.Min.X; x<b.Max.X; x++ {
			r, g, bb, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			out.SetRGBA(x, y, color.RGBA{
				R: clampU8(float64(r)/257.0 - delta),
				G: clampU8(float64(g)/257.0 - delta),
				B: clampU8(float64(bb)/257.0 - delta),
				A: uint8(a / 257),
			})
		}
	}
	return out
}

// NormalizeGrayRange stretches the image's gray levels so the darkest
// pixel maps to 0 and the brightest to 255. A flat image maps to 0.
func NormalizeGrayRange(src *image.Gray) *image.Gray {
	b := src.Bounds()
	lo, hi := uint8(255), uint8(0)
	for y:=b.Min.Y; y<b.Max.Y; y++ {
		for x:=b.Min.X; x<b.Max.X; x++ {
			v := src.GrayAt(x, y).Y
			if v < lo { lo = v }
			if v > hi { hi = v }
		}
	}

	out := image.NewGray(b)
	if hi <= lo {
		return out
	}

	scale := 255.0 / float64(hi-lo)
	for y:=b.Min.Y; y<b.Max.Y; y++ {
		for x:=b.Min.X; x<b.Max.X; x++ {
			v := float64(src.GrayAt(x, y).Y-lo) * scale
			out.SetGray(x, y, color.Gray{Y: uint8(v + 0.5)})
		}
	}
	return out
}

func clampU8(v float64) uint8 {
	if v < 0 { v = 0 }
	if v > 255 { v = 255 }
	return uint8(v + 0.5)
}
