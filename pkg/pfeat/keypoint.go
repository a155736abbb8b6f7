package pfeat

// Keypoint detection, binary descriptors, and 2-nearest-neighbor
// matching between descriptor sets. The stitching controller only sees
// the Extractor and Matcher interfaces, so tests can feed it
// deterministic fakes.

import(
	"fmt"
	"image"
	"math/bits"
)

// A KeyPoint is a distinctive image location worth matching across
// frames.
type KeyPoint struct {
	X, Y  int
	Score float64  // detector response, higher is more distinctive
}

func (kp KeyPoint)String() string {
	return fmt.Sprintf("kp(%d,%d @%.0f)", kp.X, kp.Y, kp.Score)
}

// A Descriptor is a fixed-length binary signature of the patch around
// a keypoint, packed into 64-bit words and compared by Hamming
// distance.
type Descriptor []uint64

func (d Descriptor)DistanceTo(other Descriptor) int {
	dist := 0
	for i := range d {
		dist += bits.OnesCount64(d[i] ^ other[i])
	}
	return dist
}

// An Extractor finds keypoints in a grayscale image and describes
// them. The two slices are index-aligned; ordering is only consistent
// within one call.
type Extractor interface {
	Extract(img *image.Gray) ([]KeyPoint, []Descriptor, error)
}

// A Neighbor is one nearest-neighbor candidate for a query descriptor.
type Neighbor struct {
	TrainIdx int
	Distance float64
}

// A Matcher finds, for every query descriptor, its two nearest
// neighbors among the train descriptors. Implementations must return
// exactly two per query whenever the train set has at least two
// entries.
type Matcher interface {
	KNN2(query, train []Descriptor) ([][2]Neighbor, error)
}
