package pano

import(
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"panoweave/pkg/pfeat"
	"panoweave/pkg/pimg"
	"panoweave/pkg/pmath"
)

// fakeExtractor hands back one scripted extraction per call, repeating
// the last entry once the script runs out.
type extraction struct {
	kps   []pfeat.KeyPoint
	descs []pfeat.Descriptor
}

type fakeExtractor struct {
	script []extraction
	calls  int
}

func (fe *fakeExtractor)Extract(img *image.Gray) ([]pfeat.KeyPoint, []pfeat.Descriptor, error) {
	e := fe.script[len(fe.script)-1]
	if fe.calls < len(fe.script) { e = fe.script[fe.calls] }
	fe.calls++
	return e.kps, e.descs, nil
}

type fakeMatcher struct {
	nns   [][2]pfeat.Neighbor
	calls int
}

func (fm *fakeMatcher)KNN2(query, train []pfeat.Descriptor) ([][2]pfeat.Neighbor, error) {
	fm.calls++
	return fm.nns, nil
}

type fitCall struct {
	matches    int
	sampleSize int
	iterations int
}

type fakeFitter struct {
	h     pmath.Mat3
	ok    bool
	calls []fitCall
}

func (ff *fakeFitter)Fit(pairs []pmath.Correspondence, sampleSize, iterations int) (pmath.Mat3, bool) {
	ff.calls = append(ff.calls, fitCall{len(pairs), sampleSize, iterations})
	return ff.h, ff.ok
}

// acceptAllNNs passes the ratio test for every query; rejectAllNNs
// fails it for every query (equal distances are always ambiguous).
func acceptAllNNs(n int) [][2]pfeat.Neighbor {
	nns := make([][2]pfeat.Neighbor, n)
	for i := range nns {
		nns[i] = [2]pfeat.Neighbor{{TrainIdx: i, Distance: 1}, {TrainIdx: (i + 1) % n, Distance: 50}}
	}
	return nns
}

func rejectAllNNs(n int) [][2]pfeat.Neighbor {
	nns := make([][2]pfeat.Neighbor, n)
	for i := range nns {
		nns[i] = [2]pfeat.Neighbor{{TrainIdx: i, Distance: 10}, {TrainIdx: (i + 1) % n, Distance: 10}}
	}
	return nns
}

func pointKps(n int) ([]pfeat.KeyPoint, []pfeat.Descriptor) {
	kps := make([]pfeat.KeyPoint, n)
	descs := make([]pfeat.Descriptor, n)
	for i := range kps {
		kps[i] = pfeat.KeyPoint{X: 5 + i*9, Y: 3 + i*5}
		descs[i] = pfeat.Descriptor{uint64(i)}
	}
	return kps, descs
}

func gradientRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(40 + 3*x), uint8(60 + 2*y), uint8(90 + x + y), 255})
		}
	}
	return img
}

func newTestStitcher(t *testing.T, mangle func(c *Config)) *Stitcher {
	t.Helper()
	cfg := NewConfig()
	if mangle != nil { mangle(&cfg) }
	s, err := NewStitcher(cfg)
	require.NoError(t, err)
	return s
}

func TestStitchSeedsOnFirstFrame(t *testing.T) {
	s := newTestStitcher(t, nil)
	fe := &fakeExtractor{script: []extraction{{}}}
	s.Extractor = fe

	img := gradientRGBA(24, 18)
	require.True(t, s.Stitch(img, false))

	require.Len(t, s.History, 1)
	rec := s.History.Last()
	require.Equal(t, image.Pt(0, 0), rec.Pos)
	require.Equal(t, pmath.Identity(), rec.H)
	require.InDelta(t, 1.0, rec.Det, 1e-12)

	// The first frame just becomes the canvas, matched against nothing.
	require.Equal(t, 0, fe.calls)
	require.Equal(t, image.Rect(0, 0, 24, 18), s.Canvas.Img.Bounds())
	want := pimg.NormalizeBrightness(img, s.Cfg.TargetBrightness)
	require.Equal(t, want.Pix, s.Canvas.Img.Pix)
}

func TestStitchFrameKeepsCaptureTime(t *testing.T) {
	s := newTestStitcher(t, nil)
	s.Extractor = &fakeExtractor{script: []extraction{{}}}

	taken := time.Date(2019, 7, 2, 16, 38, 41, 0, time.UTC)
	f := Frame{Img: gradientRGBA(24, 18), Name: "totality.jpg", TakenAt: taken}
	require.True(t, s.StitchFrame(f, false))

	rec := s.History.Last()
	require.Equal(t, "totality.jpg", rec.Meta)
	require.Equal(t, taken, rec.When)

	// A frame with no capture time gets stamped as it is stitched.
	s2 := newTestStitcher(t, nil)
	before := time.Now()
	require.True(t, s2.StitchFrame(Frame{Img: gradientRGBA(24, 18), Name: "undated.png"}, false))
	require.False(t, s2.History.Last().When.Before(before))
}

func TestStitchMatcherStrategySwitch(t *testing.T) {
	s := newTestStitcher(t, func(c *Config) { c.RetryWholeMosaic = false })

	kps, descs := pointKps(20)
	s.Extractor = &fakeExtractor{script: []extraction{{kps, descs}}}
	approx := &fakeMatcher{nns: rejectAllNNs(20)}
	exact := &fakeMatcher{nns: rejectAllNNs(20)}
	s.ApproxMatcher, s.ExactMatcher = approx, exact

	require.True(t, s.Stitch(gradientRGBA(24, 18), false))
	require.False(t, s.Stitch(gradientRGBA(24, 18), false))

	// Attempts 0 and 1 go to the approximate matcher, the remaining
	// three to the exhaustive one.
	require.Equal(t, 2, approx.calls)
	require.Equal(t, 3, exact.calls)
	require.Len(t, s.History, 1)
}

func TestStitchSampleDecayAndIterationBudget(t *testing.T) {
	s := newTestStitcher(t, func(c *Config) { c.RetryWholeMosaic = false })

	kps, descs := pointKps(20)
	s.Extractor = &fakeExtractor{script: []extraction{{kps, descs}}}
	s.ApproxMatcher = &fakeMatcher{nns: acceptAllNNs(20)}
	s.ExactMatcher = &fakeMatcher{nns: acceptAllNNs(20)}
	ff := &fakeFitter{ok: false}
	s.Ransac = ff

	require.True(t, s.Stitch(gradientRGBA(24, 18), false))
	require.False(t, s.Stitch(gradientRGBA(24, 18), false))

	// The sample shrinks by 4 after each failure but never below the
	// floor, while the trial budget keeps growing.
	require.Equal(t, []fitCall{
		{20, 16, 500},
		{20, 12, 750},
		{20, 8, 1000},
		{20, 4, 1250},
		{20, 4, 1500},
	}, ff.calls)
}

func TestStitchTooFewMatchesSkipsFitting(t *testing.T) {
	s := newTestStitcher(t, func(c *Config) {
		c.RetryWholeMosaic = false
		c.MaxAttempts = 4
	})

	kps, descs := pointKps(5)
	s.Extractor = &fakeExtractor{script: []extraction{{kps, descs}}}
	s.ApproxMatcher = &fakeMatcher{nns: acceptAllNNs(5)}
	s.ExactMatcher = &fakeMatcher{nns: acceptAllNNs(5)}
	ff := &fakeFitter{ok: false}
	s.Ransac = ff

	require.True(t, s.Stitch(gradientRGBA(24, 18), false))
	require.False(t, s.Stitch(gradientRGBA(24, 18), false))

	// Five matches can't fill a sample of 16, 12 or 8; only the last
	// attempt, decayed down to the floor, actually fits.
	require.Equal(t, []fitCall{{5, 4, 1250}}, ff.calls)
}

func TestStitchAreaRatioRejectionKeepsSampleSize(t *testing.T) {
	s := newTestStitcher(t, func(c *Config) {
		c.RetryWholeMosaic = false
		c.MaxAttempts = 3
	})

	kps, descs := pointKps(20)
	s.Extractor = &fakeExtractor{script: []extraction{{kps, descs}}}
	s.ApproxMatcher = &fakeMatcher{nns: acceptAllNNs(20)}
	s.ExactMatcher = &fakeMatcher{nns: acceptAllNNs(20)}

	// A fit that crushes the frame to 1% of its area: numerically fine,
	// geometrically implausible.
	crush := pmath.Mat3{0.1, 0, 0, 0, 0.1, 0, 0, 0, 1}
	ff := &fakeFitter{h: crush, ok: true}
	s.Ransac = ff

	require.True(t, s.Stitch(gradientRGBA(24, 18), false))
	require.False(t, s.Stitch(gradientRGBA(24, 18), false))

	// Unlike the other two failure paths, this rejection leaves the
	// sample size alone.
	require.Equal(t, []fitCall{
		{20, 16, 500},
		{20, 16, 750},
		{20, 16, 1000},
	}, ff.calls)
	require.Len(t, s.History, 1)
}

func TestStitchWholeMosaicFallbackOnce(t *testing.T) {
	s := newTestStitcher(t, nil)

	kps, descs := pointKps(20)
	fe := &fakeExtractor{script: []extraction{{kps, descs}}}
	s.Extractor = fe
	approx := &fakeMatcher{nns: rejectAllNNs(20)}
	exact := &fakeMatcher{nns: rejectAllNNs(20)}
	s.ApproxMatcher, s.ExactMatcher = approx, exact

	require.True(t, s.Stitch(gradientRGBA(24, 18), false))
	require.False(t, s.Stitch(gradientRGBA(24, 18), false))

	// One extraction for the frame, one per reference: the failed
	// per-frame pass earns exactly one whole-mosaic pass.
	require.Equal(t, 3, fe.calls)
	require.Equal(t, 4, approx.calls)
	require.Equal(t, 6, exact.calls)

	// Asking for the whole mosaic up front leaves nothing to fall
	// back to, so there is a single pass.
	fe.calls, approx.calls, exact.calls = 0, 0, 0
	require.False(t, s.Stitch(gradientRGBA(24, 18), true))
	require.Equal(t, 2, fe.calls)
	require.Equal(t, 2, approx.calls)
	require.Equal(t, 3, exact.calls)
}

func TestStitchFailureLeavesStateAlone(t *testing.T) {
	s := newTestStitcher(t, nil)

	kps, descs := pointKps(20)
	s.Extractor = &fakeExtractor{script: []extraction{{kps, descs}}}
	s.ApproxMatcher = &fakeMatcher{nns: rejectAllNNs(20)}
	s.ExactMatcher = &fakeMatcher{nns: rejectAllNNs(20)}

	require.True(t, s.Stitch(gradientRGBA(24, 18), false))
	before := append([]uint8{}, s.Canvas.Img.Pix...)

	require.False(t, s.Stitch(gradientRGBA(24, 18), false))

	require.Len(t, s.History, 1)
	require.Equal(t, image.Rect(0, 0, 24, 18), s.Canvas.Img.Bounds())
	require.Equal(t, before, s.Canvas.Img.Pix)
}

func TestStitchTranslatedFrameEndToEnd(t *testing.T) {
	s := newTestStitcher(t, nil)

	// Twenty grid points seen 8px further left in the reference: the
	// true frame->reference transform is a translation by (-8,0).
	trainKps := []pfeat.KeyPoint{}
	queryKps := []pfeat.KeyPoint{}
	descs := []pfeat.Descriptor{}
	for gy:=0; gy<4; gy++ {
		for gx:=0; gx<5; gx++ {
			x, y := 3+9*gx, 2+9*gy
			trainKps = append(trainKps, pfeat.KeyPoint{X: x, Y: y})
			queryKps = append(queryKps, pfeat.KeyPoint{X: x + 8, Y: y})
			descs = append(descs, pfeat.Descriptor{uint64(len(descs))})
		}
	}
	s.Extractor = &fakeExtractor{script: []extraction{
		{queryKps, descs},  // the new frame
		{trainKps, descs},  // the reference
	}}
	s.ApproxMatcher = &fakeMatcher{nns: acceptAllNNs(20)}
	s.ExactMatcher = &fakeMatcher{nns: acceptAllNNs(20)}

	seed := gradientRGBA(40, 30)
	next := gradientRGBA(40, 30)
	require.True(t, s.Stitch(seed, false))
	require.True(t, s.Stitch(next, false))
	require.Len(t, s.History, 2)

	// The frame lands 8px left of the seed, growing the canvas left;
	// the seed slides right to keep coordinates non-negative.
	require.Equal(t, image.Rect(0, 0, 48, 30), s.Canvas.Img.Bounds())
	rec := s.History.Last()
	require.Equal(t, image.Pt(0, 0), rec.Pos)
	require.Equal(t, image.Pt(8, 0), s.History[0].PosIn(s.Canvas))

	// Warp shift times fitted translation cancels out to identity.
	want := pmath.Identity()
	for i := range want {
		require.InDelta(t, want[i], rec.H[i], 1e-6)
	}
	require.InDelta(t, 1.0, rec.Det, 1e-6)

	// Outside the overlap each side is exactly its own frame.
	wantNext := pimg.NormalizeBrightness(next, s.Cfg.TargetBrightness)
	require.Equal(t, wantNext.RGBAAt(3, 11), s.Canvas.Img.RGBAAt(3, 11))
	wantSeed := pimg.NormalizeBrightness(seed, s.Cfg.TargetBrightness)
	require.Equal(t, wantSeed.RGBAAt(38, 11), s.Canvas.Img.RGBAAt(46, 11))
}
