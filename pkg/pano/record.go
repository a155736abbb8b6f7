package pano

import(
	"fmt"
	"image"
	"time"

	"panoweave/pkg/pmath"
)

// A StitchRecord is the result of one successfully stitched frame.
// Records are built once, appended to the history, and never touched
// again; the warped grayscale is kept because the next frame is matched
// against it.
type StitchRecord struct {
	Original   *image.RGBA   // the brightness-normalized input frame
	Warped     *image.RGBA   // the frame mapped into reference coordinates
	WarpedGray *image.Gray
	Pos        image.Point   // canvas position at the time of placement
	H          pmath.Mat3    // frame -> reference, canvas shift included
	When       time.Time     // EXIF capture time where known, else stitch time
	Meta       string        // whatever the caller wants to remember, usually a filename
	Det        float64       // det(H); a value near zero means the fit collapsed

	canvasShift image.Point  // canvas origin drift when placed; later growth invalidates Pos
}

// PosIn translates the record's placement into the canvas's current
// coordinates, which drift as growth above or left of the origin shifts
// everything already placed.
func (r *StitchRecord)PosIn(cv *Canvas) image.Point {
	return r.Pos.Add(cv.Shift.Sub(r.canvasShift))
}

func (r *StitchRecord)String() string {
	return fmt.Sprintf("stitch[%s] at (%d,%d), %dx%d px, det %.3f",
		r.Meta, r.Pos.X, r.Pos.Y, r.Warped.Bounds().Dx(), r.Warped.Bounds().Dy(), r.Det)
}

// History is the append-only log of stitched frames, oldest first. Only
// the stitcher appends to it.
type History []*StitchRecord

// Last returns the most recent record, or nil before the first stitch.
func (h History)Last() *StitchRecord {
	if len(h) == 0 {
		return nil
	}
	return h[len(h)-1]
}
