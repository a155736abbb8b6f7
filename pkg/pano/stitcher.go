package pano

import(
	"image"
	"log"
	"math"
	"time"

	"panoweave/pkg/pfeat"
	"panoweave/pkg/pimg"
	"panoweave/pkg/pmath"
)

// A Fitter estimates a homography from noisy correspondences, spending
// at most the given trial budget.
type Fitter interface {
	Fit(pairs []pmath.Correspondence, sampleSize, iterations int) (pmath.Mat3, bool)
}

// A Stitcher accumulates frames into a mosaic. Each frame is matched
// against the previously placed one, a homography is fit over the
// matches, and the warped frame is blended onto the canvas. When a
// frame refuses to fit, the stitcher degrades gracefully: it retries
// with a smaller RANSAC sample and a bigger trial budget, swaps the
// approximate matcher for the exhaustive one, and finally rematches
// against the whole mosaic instead of just the last frame.
//
// The collaborator fields are plain interfaces so tests can drop in
// deterministic stand-ins.
type Stitcher struct {
	Cfg           Config
	Extractor     pfeat.Extractor
	ApproxMatcher pfeat.Matcher  // attempts 0 and 1
	ExactMatcher  pfeat.Matcher  // attempts 2 onward
	Ransac        Fitter
	Canvas        *Canvas
	History       History
}

func NewStitcher(cfg Config) (*Stitcher, error) {
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	extractor, err := cfg.NewExtractor()
	if err != nil {
		return nil, err
	}

	ransac := pmath.NewRansacEstimator(cfg.InlierThreshold, cfg.RandomSeed)
	ransac.Workers = cfg.Workers

	return &Stitcher{
		Cfg:           cfg,
		Extractor:     extractor,
		ApproxMatcher: pfeat.NewIndexedMatcher(),
		ExactMatcher:  pfeat.BruteForce{},
		Ransac:        ransac,
		Canvas:        &Canvas{Blend: cfg.Blend, Mix: cfg.BlendMix},
	}, nil
}

// Stitch adds one frame to the mosaic and reports whether it stuck.
// With useWholeMosaic the frame is matched against everything placed so
// far rather than just the previous frame; otherwise that only happens
// as a fallback. A failed frame leaves the canvas and history exactly
// as they were, so the caller is free to skip it and carry on.
func (s *Stitcher)Stitch(img image.Image, useWholeMosaic bool) bool {
	return s.stitch(img, "", time.Now(), useWholeMosaic)
}

// StitchFrame is Stitch for loaded frames, remembering the frame's
// name and capture time.
func (s *Stitcher)StitchFrame(f Frame, useWholeMosaic bool) bool {
	when := f.TakenAt
	if when.IsZero() { when = time.Now() }
	return s.stitch(f.Img, f.Name, when, useWholeMosaic)
}

func (s *Stitcher)stitch(img image.Image, meta string, when time.Time, useWholeMosaic bool) bool {
	frame := pimg.NormalizeBrightness(img, s.Cfg.TargetBrightness)

	if len(s.History) == 0 {
		s.seed(frame, meta, when)
		return true
	}

	frameGray := pimg.ToGray(frame)
	queryKps, queryDescs, err := s.Extractor.Extract(frameGray)
	if err != nil {
		log.Printf("feature extraction failed [%s]: %v\n", meta, err)
		return false
	}
	if len(queryDescs) < 2 {
		if s.Cfg.Verbosity >= 1 { log.Printf("frame [%s] too featureless to match\n", meta) }
		return false
	}

	triedWhole := useWholeMosaic
	for {
		h, ok := s.fitAgainst(queryKps, queryDescs, frame.Bounds(), useWholeMosaic, meta)
		if ok {
			return s.compose(frame, h, useWholeMosaic, meta, when)
		}
		if !s.Cfg.RetryWholeMosaic || triedWhole {
			if s.Cfg.Verbosity >= 1 { log.Printf("giving up on [%s]\n", meta) }
			return false
		}

		// One bounded extra pass, matched against the whole mosaic.
		if s.Cfg.Verbosity >= 1 { log.Printf("retrying [%s] against the whole mosaic\n", meta) }
		triedWhole, useWholeMosaic = true, true
	}
}

// seed starts the mosaic: the first frame is the canvas.
func (s *Stitcher)seed(frame *image.RGBA, meta string, when time.Time) {
	s.Canvas.Place(frame, 0, 0, false)

	h := pmath.Identity()
	s.History = append(s.History, &StitchRecord{
		Original:    frame,
		Warped:      frame,
		WarpedGray:  pimg.ToGray(frame),
		Pos:         image.Pt(0, 0),
		H:           h,
		When:        when,
		Meta:        meta,
		Det:         h.Det(),
		canvasShift: s.Canvas.Shift,
	})

	if s.Cfg.Verbosity >= 1 {
		log.Printf("seeded mosaic with [%s], %dx%d\n", meta, frame.Bounds().Dx(), frame.Bounds().Dy())
	}
}

// fitAgainst runs the attempt loop for one reference image and returns
// a validated frame->reference homography, or ok=false once the
// attempts are spent.
func (s *Stitcher)fitAgainst(queryKps []pfeat.KeyPoint, queryDescs []pfeat.Descriptor, frameBounds image.Rectangle, wholeMosaic bool, meta string) (pmath.Mat3, bool) {
	refGray := s.referenceGray(wholeMosaic)
	trainKps, trainDescs, err := s.Extractor.Extract(refGray)
	if err != nil {
		log.Printf("feature extraction failed on reference [%s]: %v\n", meta, err)
		return pmath.Mat3{}, false
	}
	if len(trainDescs) < 2 {
		return pmath.Mat3{}, false
	}

	w, hgt := float64(frameBounds.Dx()), float64(frameBounds.Dy())
	sampleSize := s.Cfg.SampleSize

	for i:=0; i<s.Cfg.MaxAttempts; i++ {
		matcher := s.ApproxMatcher
		if i >= 2 { matcher = s.ExactMatcher }  // the fast matcher has had its two chances

		nns, err := matcher.KNN2(queryDescs, trainDescs)
		if err != nil {
			log.Printf("matcher failed [%s]: %v\n", meta, err)
			return pmath.Mat3{}, false
		}
		matches := pfeat.FilterMatches(queryKps, trainKps, nns, s.Cfg.MatchRatio)

		if len(matches) < sampleSize {
			if s.Cfg.Verbosity >= 2 {
				log.Printf("  attempt %d [%s]: only %d matches for sample size %d\n", i, meta, len(matches), sampleSize)
			}
			sampleSize = shrinkSample(sampleSize, s.Cfg.MinSampleSize)
			continue
		}

		h, ok := s.Ransac.Fit(matches, sampleSize, s.Cfg.IterationsForAttempt(i))
		if !ok {
			if s.Cfg.Verbosity >= 2 {
				log.Printf("  attempt %d [%s]: no consensus across %d matches\n", i, meta, len(matches))
			}
			sampleSize = shrinkSample(sampleSize, s.Cfg.MinSampleSize)
			continue
		}

		if ratio := pmath.AreaRatio(h, w, hgt); math.IsNaN(ratio) || ratio < s.Cfg.MinAreaRatio {
			// Implausibly crushed, mirrored, or horizon-crossing frame.
			// The sample size stays put here: matches were plentiful,
			// the fit was just bad.
			if s.Cfg.Verbosity >= 2 {
				log.Printf("  attempt %d [%s]: area ratio %.3f below %.3f\n", i, meta, ratio, s.Cfg.MinAreaRatio)
			}
			continue
		}

		if s.Cfg.Verbosity >= 2 { s.logReprojectionSpread(matches, h) }
		return h, true
	}

	return pmath.Mat3{}, false
}

// referenceGray is what a frame gets matched against: normally the
// previous frame as it was warped onto the canvas, or the whole mosaic
// (contrast-stretched, since blending flattens it) for the fallback.
func (s *Stitcher)referenceGray(wholeMosaic bool) *image.Gray {
	if wholeMosaic {
		return pimg.NormalizeGrayRange(pimg.ToGray(s.Canvas.Img))
	}
	return s.History.Last().WarpedGray
}

// compose warps the frame into reference coordinates and blends it onto
// the canvas.
func (s *Stitcher)compose(frame *image.RGBA, h pmath.Mat3, wholeMosaic bool, meta string, when time.Time) bool {
	b := frame.Bounds()
	quad := pmath.CornerQuad(float64(b.Dx()), float64(b.Dy()))

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range quad {
		p := h.ProjectVec2(c)
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}

	// Clean fits project corners a rounding error shy of integers; the
	// nudge keeps floor/ceil from padding a phantom row or column.
	const snap = 1e-9
	offX, offY := int(math.Floor(minX+snap)), int(math.Floor(minY+snap))
	width := int(math.Ceil(maxX-snap)) - offX
	height := int(math.Ceil(maxY-snap)) - offY
	if !allFinite(minX, minY, maxX, maxY) || width < 1 || height < 1 {
		log.Printf("fit for [%s] maps the frame to an unusable region, dropping it\n", meta)
		return false
	}

	// Shift the warp so the frame lands in a tight non-negative buffer;
	// offX/offY carry its true position for the compositor.
	shifted := pmath.Translation(float64(-offX), float64(-offY)).Mult(h)
	warped, err := pimg.WarpPerspective(frame, shifted, width, height)
	if err != nil {
		log.Printf("warp failed [%s]: %v\n", meta, err)
		return false
	}

	x, y := s.Canvas.Place(warped, offX, offY, wholeMosaic)
	s.History = append(s.History, &StitchRecord{
		Original:    frame,
		Warped:      warped,
		WarpedGray:  pimg.ToGray(warped),
		Pos:         image.Pt(x, y),
		H:           shifted,
		When:        when,
		Meta:        meta,
		Det:         shifted.Det(),
		canvasShift: s.Canvas.Shift,
	})

	if s.Cfg.Verbosity >= 1 {
		log.Printf("stitched [%s] at (%d,%d), canvas now %dx%d\n",
			meta, x, y, s.Canvas.Img.Bounds().Dx(), s.Canvas.Img.Bounds().Dy())
	}
	return true
}

func shrinkSample(n, floor int) int {
	n -= 4
	if n < floor { n = floor }
	return n
}

func allFinite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) { return false }
	}
	return true
}
