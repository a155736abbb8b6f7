package pfeat

import(
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

// brightSquare draws a 220-gray square on a 30-gray background; its
// four corners are the only corner-like structure in the image.
func brightSquare(t *testing.T) (*image.Gray, []image.Point) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 30
	}
	for y:=20; y<44; y++ {
		for x:=20; x<44; x++ {
			img.SetGray(x, y, color.Gray{Y: 220})
		}
	}
	corners := []image.Point{{20, 20}, {43, 20}, {20, 43}, {43, 43}}
	return img, corners
}

func TestFastBriefFindsSquareCorners(t *testing.T) {
	img, corners := brightSquare(t)

	fb := NewFastBrief(20, 100)
	kps, descs, err := fb.Extract(img)
	require.NoError(t, err)
	require.Equal(t, len(kps), len(descs))
	require.GreaterOrEqual(t, len(kps), 2)

	// Every detection sits on one of the four true corners; straight
	// edges and flat regions never pass the segment test.
	for _, kp := range kps {
		near := false
		for _, c := range corners {
			if absInt(kp.X-c.X) <= 4 && absInt(kp.Y-c.Y) <= 4 {
				near = true
				break
			}
		}
		require.True(t, near, "stray keypoint %s", kp)
	}
}

func TestFastBriefDeterministic(t *testing.T) {
	img, _ := brightSquare(t)

	fb := NewFastBrief(20, 100)
	kps1, descs1, err := fb.Extract(img)
	require.NoError(t, err)
	kps2, descs2, err := fb.Extract(img)
	require.NoError(t, err)

	require.Equal(t, kps1, kps2)
	require.Equal(t, descs1, descs2)
}

func TestFastBriefFlatImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 48, 48))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	fb := NewFastBrief(20, 100)
	kps, _, err := fb.Extract(img)
	require.NoError(t, err)
	require.Empty(t, kps)
}

func TestFastBriefKeyPointCap(t *testing.T) {
	img, _ := brightSquare(t)

	fb := NewFastBrief(20, 1)
	kps, _, err := fb.Extract(img)
	require.NoError(t, err)
	require.Len(t, kps, 1)
}

func TestDescriptorDistance(t *testing.T) {
	zero := Descriptor{0, 0, 0, 0}
	one := Descriptor{1, 0, 0, 0}
	word := Descriptor{0xFFFFFFFFFFFFFFFF, 0, 0, 0}

	require.Equal(t, 0, zero.DistanceTo(zero))
	require.Equal(t, 1, zero.DistanceTo(one))
	require.Equal(t, 64, zero.DistanceTo(word))
	require.Equal(t, 63, one.DistanceTo(word))
}
