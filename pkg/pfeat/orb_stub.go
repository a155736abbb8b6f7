//go:build !gocv
// +build !gocv

package pfeat

import(
	"errors"
	"image"
)

// OrbExtractor stub for builds without the gocv tag, so callers can
// link without an OpenCV install.
type OrbExtractor struct {
	MaxKeyPoints int
}

func NewOrbExtractor(maxKeyPoints int) (*OrbExtractor, error) {
	return nil, errors.New("orb extractor needs a build with -tags gocv")
}

func (oe *OrbExtractor)Extract(img *image.Gray) ([]KeyPoint, []Descriptor, error) {
	return nil, nil, errors.New("orb extractor needs a build with -tags gocv")
}
