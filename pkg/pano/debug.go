package pano

import(
	"fmt"
	"image"
	"log"

	"github.com/codahale/hdrhistogram"
	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"

	"panoweave/pkg/pimg"
	"panoweave/pkg/pmath"
)

// logReprojectionSpread summarizes how well an accepted fit explains
// the whole match set, in thousandths of a squared pixel. The tail is
// the interesting part: a fat p90 means the fit only really holds for
// its inliers.
func (s *Stitcher)logReprojectionSpread(matches []pmath.Correspondence, h pmath.Mat3) {
	hist := hdrhistogram.New(1, 1000000000, 3)
	for _, e := range pmath.ReprojectionErrors(matches, h) {
		v := int64(e * 1000.0)
		if v < 1 { v = 1 }
		if v > 1000000000 { v = 1000000000 }
		hist.RecordValue(v)
	}

	log.Printf("  reprojection err over %d matches (milli-px^2): mean=%.0f p50=%d p90=%d worst=%d\n",
		len(matches), hist.Mean(), hist.ValueAtQuantile(50), hist.ValueAtQuantile(90), hist.Max())
}

// WriteDebugComposite writes the mosaic with every frame's footprint
// outlined and numbered, one hue per frame, for eyeballing where the
// stitcher decided to put things.
func (s *Stitcher)WriteDebugComposite(filename string) error {
	if s.Canvas.Img == nil {
		return fmt.Errorf("nothing stitched yet")
	}

	dc := gg.NewContextForImage(s.Canvas.Img)
	dc.SetLineWidth(2)

	for i, rec := range s.History {
		pos := rec.PosIn(s.Canvas)
		b := rec.Warped.Bounds()

		dc.SetColor(colorful.Hsv(float64(i)*360.0/float64(len(s.History)), 1, 1))
		dc.DrawRectangle(float64(pos.X), float64(pos.Y), float64(b.Dx()), float64(b.Dy()))
		dc.Stroke()

		// Label at the footprint's center; corners pile up under later frames.
		c := pimg.RectCenter(image.Rectangle{Min: pos, Max: pos.Add(b.Size())})
		dc.DrawStringAnchored(fmt.Sprintf("%d %s", i, rec.Meta), float64(c.X), float64(c.Y), 0.5, 0.5)
	}

	return dc.SavePNG(filename)
}
