package pfeat

import(
	"image"
	"math"
	"math/rand"
	"sort"

	"panoweave/pkg/pimg"
)

const(
	segmentArc  = 9    // contiguous circle pixels required by the segment test
	nmsWin      = 7    // suppression neighborhood, pixels
	briefBits   = 256  // descriptor length
	patchRadius = 15   // half-width of the description patch
	blurRadius  = 2    // smoothing applied before intensity comparisons
	patternSeed = 1    // the comparison pattern is fixed for the life of the process
)

// The 16-pixel Bresenham circle of radius 3 around a candidate corner,
// clockwise from 12 o'clock.
var fastCircle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// A FastBrief extractor detects FAST-9 segment-test corners and
// describes each with a 256-bit BRIEF signature: random intensity
// comparisons over a smoothed patch, packed into four words. Entirely
// deterministic for a given image.
type FastBrief struct {
	Threshold    int  // center-vs-circle intensity delta for the segment test
	MaxKeyPoints int  // keep only the strongest this-many corners; <=0 keeps all

	pattern []briefPair
}

type briefPair struct {
	x1, y1, x2, y2 int
}

func NewFastBrief(threshold, maxKeyPoints int) *FastBrief {
	rng := rand.New(rand.NewSource(patternSeed))
	pattern := make([]briefPair, briefBits)
	for i := range pattern {
		pattern[i] = briefPair{
			x1: rng.Intn(2*patchRadius+1) - patchRadius,
			y1: rng.Intn(2*patchRadius+1) - patchRadius,
			x2: rng.Intn(2*patchRadius+1) - patchRadius,
			y2: rng.Intn(2*patchRadius+1) - patchRadius,
		}
	}

	return &FastBrief{
		Threshold:    threshold,
		MaxKeyPoints: maxKeyPoints,
		pattern:      pattern,
	}
}

func (fb *FastBrief)Extract(img *image.Gray) ([]KeyPoint, []Descriptor, error) {
	kps := fb.detect(img)

	smooth := pimg.BoxBlurGray(img, blurRadius)
	descs := make([]Descriptor, len(kps))
	for i, kp := range kps {
		descs[i] = fb.describe(smooth, kp)
	}

	return kps, descs, nil
}

// detect runs the segment test over the interior of the image (the
// margin keeps every description patch fully inside), suppresses
// non-maxima, and caps the survivors at MaxKeyPoints.
func (fb *FastBrief)detect(img *image.Gray) []KeyPoint {
	b := img.Bounds()

	candidates := []KeyPoint{}
	for y:=b.Min.Y+patchRadius; y<b.Max.Y-patchRadius; y++ {
		for x:=b.Min.X+patchRadius; x<b.Max.X-patchRadius; x++ {
			if score, ok := segmentTest(img, x, y, fb.Threshold); ok {
				candidates = append(candidates, KeyPoint{X: x, Y: y, Score: score})
			}
		}
	}

	kps := nonMaxSuppress(candidates, nmsWin)
	if fb.MaxKeyPoints > 0 && len(kps) > fb.MaxKeyPoints {
		kps = kps[:fb.MaxKeyPoints]
	}
	return kps
}

// segmentTest reports whether >=9 contiguous circle pixels are all
// brighter, or all darker, than the center by at least thresh. The
// score is the total intensity delta over the agreeing pixels.
func segmentTest(img *image.Gray, x, y, thresh int) (float64, bool) {
	c := int(img.GrayAt(x, y).Y)

	var states [16]int  // +1 brighter, -1 darker, 0 similar
	for i, off := range fastCircle {
		p := int(img.GrayAt(x+off[0], y+off[1]).Y)
		if p >= c+thresh {
			states[i] = 1
		} else if p <= c-thresh {
			states[i] = -1
		}
	}

	for _, want := range []int{1, -1} {
		run, longest := 0, 0
		for i:=0; i<32; i++ {  // doubled scan handles the wraparound
			if states[i%16] == want {
				run++
				if run > longest { longest = run }
			} else {
				run = 0
			}
		}
		if longest < segmentArc {
			continue
		}

		score := 0.0
		for i, off := range fastCircle {
			if states[i] == want {
				p := int(img.GrayAt(x+off[0], y+off[1]).Y)
				score += math.Abs(float64(p - c))
			}
		}
		return score, true
	}

	return 0, false
}

// nonMaxSuppress keeps only corners that are the strongest within
// their win x win neighborhood. Candidates are ranked (score, then
// raster order) so the result is deterministic.
func nonMaxSuppress(candidates []KeyPoint, win int) []KeyPoint {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Y != candidates[j].Y {
			return candidates[i].Y < candidates[j].Y
		}
		return candidates[i].X < candidates[j].X
	})

	type cell struct{ cx, cy int }
	taken := map[cell][]KeyPoint{}
	reach := win / 2

	kept := []KeyPoint{}
	for _, kp := range candidates {
		cx, cy := kp.X/win, kp.Y/win

		suppressed := false
		for dy:=-1; dy<=1 && !suppressed; dy++ {
			for dx:=-1; dx<=1 && !suppressed; dx++ {
				for _, k := range taken[cell{cx + dx, cy + dy}] {
					if absInt(k.X-kp.X) <= reach && absInt(k.Y-kp.Y) <= reach {
						suppressed = true
						break
					}
				}
			}
		}

		if !suppressed {
			taken[cell{cx, cy}] = append(taken[cell{cx, cy}], kp)
			kept = append(kept, kp)
		}
	}

	return kept
}

func (fb *FastBrief)describe(img *image.Gray, kp KeyPoint) Descriptor {
	d := make(Descriptor, briefBits/64)
	for i, p := range fb.pattern {
		a := img.GrayAt(kp.X+p.x1, kp.Y+p.y1).Y
		b := img.GrayAt(kp.X+p.x2, kp.Y+p.y2).Y
		if a < b {
			d[i/64] |= 1 << (i % 64)
		}
	}
	return d
}

func absInt(v int) int {
	if v < 0 { return -v }
	return v
}
