package pano

import(
	"image"
	"image/color"
	"image/draw"
)

// A BlendFunc decides the value of one canvas pixel where a newly
// placed frame lands on it.
type BlendFunc func(old, next color.RGBA, mix float64) color.RGBA

// BlendLegacy weights by the new frame's own alpha channel. The mix
// constant is ignored.
func BlendLegacy(old, next color.RGBA, mix float64) color.RGBA {
	a := float64(next.A) / 255.0
	return color.RGBA{
		R: blend8(next.R, old.R, a),
		G: blend8(next.G, old.G, a),
		B: blend8(next.B, old.B, a),
		A: blend8(next.A, old.A, a),
	}
}

// BlendWeighted lets whichever side has content win outright, and mixes
// only where both do. A pixel has content when any channel is nonzero,
// so warped-off regions (fully zero) never darken the mosaic.
func BlendWeighted(old, next color.RGBA, mix float64) color.RGBA {
	oldThere := old.R != 0 || old.G != 0 || old.B != 0 || old.A != 0
	nextThere := next.R != 0 || next.G != 0 || next.B != 0 || next.A != 0

	switch {
	case nextThere && !oldThere:
		return next
	case oldThere && !nextThere:
		return old
	case !oldThere && !nextThere:
		return color.RGBA{}
	}

	return color.RGBA{
		R: blend8(next.R, old.R, mix),
		G: blend8(next.G, old.G, mix),
		B: blend8(next.B, old.B, mix),
		A: blend8(next.A, old.A, mix),
	}
}

func blend8(next, old uint8, w float64) uint8 {
	return uint8(w*float64(next) + (1.0-w)*float64(old) + 0.5)
}

// A Canvas is the growing mosaic buffer. It only ever gets bigger: each
// placement that sticks out past an edge reallocates the buffer to the
// union bounding box and copies the old content across, since growing
// up or left moves the origin under everything already placed.
type Canvas struct {
	Img           *image.RGBA  // nil until the first placement
	Blend         BlendFunc
	Mix           float64
	Shift         image.Point  // total origin drift from growth; see StitchRecord.PosIn

	lastPlacement image.Point
}

// Place composites img onto the canvas with its top-left corner at
// (offX,offY), relative to the previous placement - or to the canvas
// origin when wholeOrigin is set, for frames that were matched against
// the whole mosaic. It returns the image's top-left position in the
// possibly reallocated canvas; later placements chain off that.
func (cv *Canvas)Place(img *image.RGBA, offX, offY int, wholeOrigin bool) (int, int) {
	b := img.Bounds()

	// The first frame simply becomes the canvas.
	if cv.Img == nil {
		cv.Img = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(cv.Img, cv.Img.Bounds(), img, b.Min, draw.Src)
		cv.lastPlacement = image.Pt(0, 0)
		return 0, 0
	}

	base := cv.lastPlacement
	if wholeOrigin { base = image.Pt(0, 0) }

	abs := image.Pt(base.X+offX, base.Y+offY)
	newRect := image.Rectangle{Min: abs, Max: abs.Add(b.Size())}
	union := cv.Img.Bounds().Union(newRect)

	// Wholesale reallocation; patching the old buffer in place would
	// leave every stored coordinate wrong whenever the origin shifts.
	grown := image.NewRGBA(image.Rect(0, 0, union.Dx(), union.Dy()))
	shift := image.Pt(-union.Min.X, -union.Min.Y)
	draw.Draw(grown, cv.Img.Bounds().Add(shift), cv.Img, cv.Img.Bounds().Min, draw.Src)

	cv.Shift = cv.Shift.Add(shift)

	placed := abs.Add(shift)
	for y:=0; y<b.Dy(); y++ {
		for x:=0; x<b.Dx(); x++ {
			old := grown.RGBAAt(placed.X+x, placed.Y+y)
			next := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			grown.SetRGBA(placed.X+x, placed.Y+y, cv.Blend(old, next, cv.Mix))
		}
	}

	cv.Img = grown
	cv.lastPlacement = placed
	return placed.X, placed.Y
}
