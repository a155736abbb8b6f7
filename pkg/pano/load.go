package pano

import(
	"fmt"
	"image"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"

	"panoweave/pkg/pimg"
)

// A Frame is one input photograph, ready to stitch.
type Frame struct {
	Img     image.Image
	Name    string     // base filename
	TakenAt time.Time  // EXIF capture time; zero when the file carries none
}

// LoadFrames gathers frames from the named files and directories,
// recursing into directories. Contents come back in name order, which
// for most cameras is also shooting order. Files with unrecognized
// extensions are ignored.
func LoadFrames(args []string, maxDim int) ([]Frame, error) {
	frames := []Frame{}

	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return nil, fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("readdir %s: %v", arg, err)
			}
			names := []string{}
			for _, content := range contents {
				names = append(names, filepath.Join(arg, content.Name()))
			}
			loaded, err := LoadFrames(names, maxDim)
			if err != nil {
				return nil, err
			}
			frames = append(frames, loaded...)

		default:
			switch strings.ToLower(filepath.Ext(arg)) {
			case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
				f, err := LoadFrame(arg, maxDim)
				if err != nil {
					return nil, err
				}
				frames = append(frames, f)
			}
		}
	}

	return frames, nil
}

// LoadFrame reads one image file, downscaling it to maxDim on the long
// edge when maxDim is positive.
func LoadFrame(filename string, maxDim int) (Frame, error) {
	f := Frame{Name: filepath.Base(filename)}

	reader, err := os.Open(filename)
	if err != nil {
		return f, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	img, _, err := image.Decode(reader)
	reader.Close()
	if err != nil {
		return f, fmt.Errorf("decode '%s': %v", filename, err)
	}

	// EXIF is best effort; plenty of sources strip it.
	if reader, err := os.Open(filename); err == nil {
		if ex, err := exif.Decode(reader); err == nil {
			if when, err := ex.DateTime(); err == nil {
				f.TakenAt = when
			}
		}
		reader.Close()
	}

	if maxDim > 0 {
		img = pimg.Downscale(img, maxDim)
	}
	f.Img = img

	return f, nil
}
