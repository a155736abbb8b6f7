package main

import(
	"flag"
	"log"

	"panoweave/pkg/pano"
	"panoweave/pkg/pimg"
)

var(
	fConfigFilename string
	fOutputFilename string
	fDebugFilename  string
	fBlendStrategy  string
	fExtractor      string
	fMaxDimension   int
	fWholeMosaic    bool
	fVerbosity      int
)

func init() {
	flag.StringVar(&fConfigFilename, "config", "", "YAML config file; flags override it")
	flag.StringVar(&fOutputFilename, "o", "", "name of output mosaic file")
	flag.StringVar(&fDebugFilename, "debug", "", "also write an annotated mosaic here")
	flag.StringVar(&fBlendStrategy, "blend", "", "how to blend overlapping frames (weighted, legacy)")
	flag.StringVar(&fExtractor, "extractor", "", "how to find keypoints (fastbrief, orb)")
	flag.IntVar(&fMaxDimension, "maxdim", 0, "downscale frames bigger than this on their long edge")
	flag.BoolVar(&fWholeMosaic, "whole", false, "match frames against the whole mosaic, not just the previous frame")
	flag.IntVar(&fVerbosity, "v", 0, "log verbosity (0-2)")
	flag.Parse()

	log.Printf("Starting\n")
}

func main() {
	cfg := pano.NewConfig()
	if fConfigFilename != "" {
		var err error
		if cfg, err = pano.LoadConfig(fConfigFilename); err != nil {
			log.Fatalf("config: %v\n", err)
		}
	}

	// Override the config file with command line args, if relevant
	if fOutputFilename != "" { cfg.OutputFilename = fOutputFilename }
	if fDebugFilename != "" { cfg.DebugFilename = fDebugFilename }
	if fBlendStrategy != "" { cfg.BlendStrategy = fBlendStrategy }
	if fExtractor != "" { cfg.Extractor = fExtractor }
	if fMaxDimension > 0 { cfg.MaxDimension = fMaxDimension }
	if fVerbosity > 0 { cfg.Verbosity = fVerbosity }

	s, err := pano.NewStitcher(cfg)
	if err != nil {
		log.Fatalf("stitcher setup failed: %v\n", err)
	}

	frames, err := pano.LoadFrames(flag.Args(), cfg.MaxDimension)
	if err != nil {
		log.Fatalf("loading frames: %v\n", err)
	}
	if len(frames) == 0 {
		log.Fatalf("no frames to stitch; pass image files or directories\n")
	}

	stitched := 0
	for _, frame := range frames {
		if !s.StitchFrame(frame, fWholeMosaic) {
			log.Printf("could not stitch '%s', skipping it\n", frame.Name)
			continue
		}
		stitched++
	}
	if stitched == 0 {
		log.Fatalf("no frame would stitch\n")
	}

	if cfg.Verbosity >= 1 {
		for i, rec := range s.History {
			log.Printf("  %02d: %s\n", i, rec)
		}
	}

	if err := pimg.WritePNG(s.Canvas.Img, cfg.OutputFilename); err != nil {
		log.Fatalf("write '%s': %v\n", cfg.OutputFilename, err)
	}
	log.Printf("Mosaic written '%s' (%d/%d frames)\n", cfg.OutputFilename, stitched, len(frames))

	if cfg.DebugFilename != "" {
		if err := s.WriteDebugComposite(cfg.DebugFilename); err != nil {
			log.Fatalf("debug composite: %v\n", err)
		}
		log.Printf("Debug composite written '%s'\n", cfg.DebugFilename)
	}
}
