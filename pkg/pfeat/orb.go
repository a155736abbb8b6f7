//go:build gocv
// +build gocv

package pfeat

import(
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// An OrbExtractor delegates detection and description to OpenCV's ORB
// via gocv. Build with -tags gocv (and an OpenCV install); the pure-Go
// FastBrief extractor is the default either way.
type OrbExtractor struct {
	MaxKeyPoints int
}

func NewOrbExtractor(maxKeyPoints int) (*OrbExtractor, error) {
	return &OrbExtractor{MaxKeyPoints: maxKeyPoints}, nil
}

func (oe *OrbExtractor)Extract(img *image.Gray) ([]KeyPoint, []Descriptor, error) {
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, nil, fmt.Errorf("orb mat convert: %v", err)
	}
	defer mat.Close()

	orb := gocv.NewORB()
	defer orb.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	cvKps, cvDescs := orb.DetectAndCompute(mat, mask)
	defer cvDescs.Close()

	n := len(cvKps)
	if oe.MaxKeyPoints > 0 && n > oe.MaxKeyPoints {
		n = oe.MaxKeyPoints  // ORB returns strongest-first
	}

	words := (cvDescs.Cols() + 7) / 8
	kps := make([]KeyPoint, 0, n)
	descs := make([]Descriptor, 0, n)
	for i:=0; i<n; i++ {
		kps = append(kps, KeyPoint{
			X:     int(cvKps[i].X + 0.5),
			Y:     int(cvKps[i].Y + 0.5),
			Score: cvKps[i].Response,
		})

		d := make(Descriptor, words)
		for c:=0; c<cvDescs.Cols(); c++ {
			d[c/8] |= uint64(cvDescs.GetUCharAt(i, c)) << (8 * (c % 8))
		}
		descs = append(descs, d)
	}

	return kps, descs, nil
}
