package pano

import(
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, filename string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 20), uint8(y * 20), 0, 255})
		}
	}

	f, err := os.Create(filename)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestLoadFramesFromDir(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "b.png"), 8, 6)
	writeTestPNG(t, filepath.Join(dir, "a.png"), 8, 6)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "z-extra"), 0755))
	writeTestPNG(t, filepath.Join(dir, "z-extra", "c.png"), 8, 6)

	frames, err := LoadFrames([]string{dir}, 0)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	// Name order, subdirectories walked, unrecognized files skipped, no
	// EXIF in a bare PNG.
	require.Equal(t, "a.png", frames[0].Name)
	require.Equal(t, "b.png", frames[1].Name)
	require.Equal(t, "c.png", frames[2].Name)
	require.True(t, frames[0].TakenAt.IsZero())
	require.Equal(t, image.Rect(0, 0, 8, 6), frames[0].Img.Bounds())
}

func TestLoadFrameDownscales(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "big.png")
	writeTestPNG(t, filename, 8, 6)

	f, err := LoadFrame(filename, 4)
	require.NoError(t, err)
	require.Equal(t, "big.png", f.Name)
	require.Equal(t, image.Rect(0, 0, 4, 3), f.Img.Bounds())
}

func TestLoadFramesMissingPath(t *testing.T) {
	_, err := LoadFrames([]string{filepath.Join(t.TempDir(), "nope")}, 0)
	require.Error(t, err)
}
