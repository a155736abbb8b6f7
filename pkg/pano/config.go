package pano

import(
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"panoweave/pkg/pfeat"
)

/* Example config file ...

outputfilename: mosaic.png
targetbrightness: 128
blendstrategy: weighted
blendmix: 0.75
minarearatio: 0.1
matchratio: 0.75
maxattempts: 5
retrywholemosaic: true
samplesize: 16
minsamplesize: 4
inlierthreshold: 5.0
ransaciterations: 500
ransaciterationstep: 250
randomseed: 1
extractor: fastbrief

*/

type Config struct {
	// Output
	OutputFilename      string
	DebugFilename       string   // when set, an annotated copy of the mosaic is written here

	// Input conditioning
	MaxDimension        int      // frames larger than this on their long edge are downscaled; 0 leaves them alone
	TargetBrightness    float64  // every frame's grayscale mean is shifted to this before matching

	// Feature extraction and matching
	Extractor           string   // fastbrief, or orb (needs a gocv build)
	FastThreshold       int
	MaxKeyPoints        int
	MatchRatio          float64  // ratio test: keep a match when best < ratio x second-best

	// Geometry fitting
	SampleSize          int      // correspondences per RANSAC trial; decays by 4 on failed attempts
	MinSampleSize       int      // decay floor; a projective fit needs at least 4
	InlierThreshold     float64  // squared pixels
	RansacIterations    int      // trial budget for the first attempt
	RansacIterationStep int      // extra trials per later attempt
	RandomSeed          int64
	MinAreaRatio        float64  // reject fits that crush the frame below this fraction of its area

	// Retry policy
	MaxAttempts         int
	RetryWholeMosaic    bool     // failed frames get one more pass matched against the whole mosaic

	// Compositing
	BlendStrategy       string   // weighted, or legacy
	BlendMix            float64  // weighted blend: share given to the new frame where both overlap

	// Execution
	Workers             int      // goroutines for RANSAC trials; <=1 is serial
	Verbosity           int      // 0 quiet, 1 per-frame, 2 per-attempt

	// Values we derive/compute
	Blend               BlendFunc
}

func NewConfig() Config {
	return Config{
		OutputFilename:      "mosaic.png",
		TargetBrightness:    128,
		Extractor:           "fastbrief",
		FastThreshold:       20,
		MaxKeyPoints:        500,
		MatchRatio:          0.75,
		SampleSize:          16,
		MinSampleSize:       4,
		InlierThreshold:     5.0,
		RansacIterations:    500,
		RansacIterationStep: 250,
		RandomSeed:          1,
		MinAreaRatio:        0.1,
		MaxAttempts:         5,
		RetryWholeMosaic:    true,
		BlendStrategy:       "weighted",
		BlendMix:            0.75,
	}
}

// LoadConfig reads a YAML file over the defaults. Unknown keys are an
// error; the recognized parameters are the whole configuration surface.
func LoadConfig(filename string) (Config, error) {
	c := NewConfig()

	if contents,err := ioutil.ReadFile(filename); err != nil {
		return c, fmt.Errorf("read '%s': %v", filename, err)
	} else if err := yaml.UnmarshalStrict(contents, &c); err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}

	return c, c.Finalize()
}

// Finalize does sanity checks and other post-processing
func (c *Config)Finalize() error {
	if c.BlendStrategy == "" { c.BlendStrategy = "weighted" }
	if c.Extractor == "" { c.Extractor = "fastbrief" }

	switch c.BlendStrategy {
	case "legacy":    c.Blend = BlendLegacy
	case "weighted":  c.Blend = BlendWeighted
	default:
		return fmt.Errorf("no BlendStrategy named '%s'", c.BlendStrategy)
	}

	switch c.Extractor {
	case "fastbrief", "orb":
	default:
		return fmt.Errorf("no Extractor named '%s'", c.Extractor)
	}

	if c.TargetBrightness < 0 || c.TargetBrightness > 255 {
		return fmt.Errorf("TargetBrightness %.1f outside [0,255]", c.TargetBrightness)
	}
	if c.BlendMix < 0 || c.BlendMix > 1 {
		return fmt.Errorf("BlendMix %.2f outside [0,1]", c.BlendMix)
	}
	if c.MatchRatio <= 0 || c.MatchRatio > 1 {
		return fmt.Errorf("MatchRatio %.2f outside (0,1]", c.MatchRatio)
	}
	if c.MinSampleSize < 4 {
		return fmt.Errorf("MinSampleSize %d below 4, the projective minimum", c.MinSampleSize)
	}
	if c.SampleSize < c.MinSampleSize {
		return fmt.Errorf("SampleSize %d below MinSampleSize %d", c.SampleSize, c.MinSampleSize)
	}
	if c.InlierThreshold <= 0 {
		return fmt.Errorf("InlierThreshold %.2f must be positive", c.InlierThreshold)
	}
	if c.RansacIterations < 1 || c.RansacIterationStep < 0 {
		return fmt.Errorf("bad RANSAC budget: %d iterations, step %d",
			c.RansacIterations, c.RansacIterationStep)
	}
	if c.MinAreaRatio <= 0 {
		return fmt.Errorf("MinAreaRatio %.3f must be positive", c.MinAreaRatio)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MaxAttempts %d must be at least 1", c.MaxAttempts)
	}
	if c.MaxDimension < 0 || c.Workers < 0 || c.Verbosity < 0 {
		return fmt.Errorf("MaxDimension, Workers and Verbosity cannot be negative")
	}

	return nil
}

// IterationsForAttempt grows the RANSAC trial budget for later, more
// desperate attempts.
func (c Config)IterationsForAttempt(attempt int) int {
	return c.RansacIterations + attempt*c.RansacIterationStep
}

// NewExtractor builds the configured feature extractor.
func (c Config)NewExtractor() (pfeat.Extractor, error) {
	switch c.Extractor {
	case "fastbrief":
		return pfeat.NewFastBrief(c.FastThreshold, c.MaxKeyPoints), nil
	case "orb":
		return pfeat.NewOrbExtractor(c.MaxKeyPoints)
	}
	return nil, fmt.Errorf("no Extractor named '%s'", c.Extractor)
}
