package pimg

import(
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"panoweave/pkg/pmath"
)

func numberedRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v := uint8(10 * (y*w + x + 1))
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestWarpIdentity(t *testing.T) {
	src := numberedRGBA(3, 3)

	out, err := WarpPerspective(src, pmath.Identity(), 3, 3)
	require.NoError(t, err)
	require.Equal(t, src.Pix, out.Pix)
}

func TestWarpTranslation(t *testing.T) {
	src := numberedRGBA(2, 2)

	out, err := WarpPerspective(src, pmath.Translation(1, 0), 3, 2)
	require.NoError(t, err)

	// Content shifted right one pixel; the vacated column is empty.
	require.Equal(t, src.RGBAAt(0, 0), out.RGBAAt(1, 0))
	require.Equal(t, src.RGBAAt(1, 1), out.RGBAAt(2, 1))
	require.Equal(t, color.RGBA{}, out.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{}, out.RGBAAt(0, 1))
}

func TestWarpOutsideStaysTransparent(t *testing.T) {
	src := numberedRGBA(2, 2)

	out, err := WarpPerspective(src, pmath.Translation(10, 10), 3, 3)
	require.NoError(t, err)
	for _, v := range out.Pix {
		require.Equal(t, uint8(0), v)
	}
}

func TestWarpRejectsSingularTransform(t *testing.T) {
	src := numberedRGBA(2, 2)

	_, err := WarpPerspective(src, pmath.Mat3{1, 0, 0, 0, 0, 0, 0, 0, 1}, 2, 2)
	require.Error(t, err)
}

func TestDownscale(t *testing.T) {
	src := numberedRGBA(100, 50)

	out := Downscale(src, 50)
	require.Equal(t, image.Rect(0, 0, 50, 25), out.Bounds())

	// Already small enough: same image back.
	require.Same(t, src, Downscale(src, 200))
	require.Same(t, src, Downscale(src, 0))
}
