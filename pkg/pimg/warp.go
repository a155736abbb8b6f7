package pimg

import(
	"fmt"
	"image"
	"image/color"
	"math"

	"panoweave/pkg/pmath"
)

// WarpPerspective resamples src through the projective transform m
// into a width x height buffer: each output pixel is inverse-mapped
// into the source and sampled bilinearly. Output pixels that map
// outside the source stay transparent. A non-invertible transform is
// an error - there is no meaningful warp by a plane-collapsing matrix.
func WarpPerspective(src image.Image, m pmath.Mat3, width, height int) (*image.RGBA, error) {
	inv, err := m.Inverse()
	if err != nil {
		return nil, fmt.Errorf("warp: %v", err)
	}

	in := ToRGBA(src)
	b := in.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, width, height))

	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			sx, sy := inv.Project(float64(x), float64(y))

			// The condition is written so NaN (vanishing-line points)
			// fails it along with genuinely out-of-range samples.
			inside := sx >= float64(b.Min.X) && sx <= float64(b.Max.X-1) &&
				sy >= float64(b.Min.Y) && sy <= float64(b.Max.Y-1)
			if !inside {
				continue
			}

			out.SetRGBA(x, y, bilinearRGBA(in, sx, sy))
		}
	}

	return out, nil
}

func bilinearRGBA(img *image.RGBA, x, y float64) color.RGBA {
	b := img.Bounds()

	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := x0+1, y0+1
	if x1 > b.Max.X-1 { x1 = b.Max.X - 1 }
	if y1 > b.Max.Y-1 { y1 = b.Max.Y - 1 }

	fx, fy := x - float64(x0), y - float64(y0)
	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	c00 := img.RGBAAt(x0, y0)
	c10 := img.RGBAAt(x1, y0)
	c01 := img.RGBAAt(x0, y1)
	c11 := img.RGBAAt(x1, y1)

	mix := func(v00, v10, v01, v11 uint8) uint8 {
		return uint8(float64(v00)*w00 + float64(v10)*w10 + float64(v01)*w01 + float64(v11)*w11 + 0.5)
	}

	return color.RGBA{
		R: mix(c00.R, c10.R, c01.R, c11.R),
		G: mix(c00.G, c10.G, c01.G, c11.G),
		B: mix(c00.B, c10.B, c01.B, c11.B),
		A: mix(c00.A, c10.A, c01.A, c11.A),
	}
}
