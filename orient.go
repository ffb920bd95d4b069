package pdfrotate

import (
	"image"
	"math"

	"github.com/bmharper/cimg/v2"
	"github.com/bmharper/docangle"
	"github.com/bmharper/textorient"
)

// Orienter suggests the rotation that would make a rendered page upright
type Orienter interface {
	Suggest(surface image.Image) (int, error)
}

// TextOrienter detects sideways pages from the direction of their white lines (docangle),
// and upside down pages from the shape of their text (textorient).
type TextOrienter struct {
	MaxSkew float64 // We only scan between -MaxSkew and +MaxSkew degrees around 0 and 90
	orient  *textorient.Orient
}

func NewTextOrienter() (*TextOrienter, error) {
	orient, err := textorient.NewOrient()
	if err != nil {
		return nil, err
	}
	return &TextOrienter{
		MaxSkew: 2.5,
		orient:  orient,
	}, nil
}

// Suggest returns a clockwise rotation in [0, 360), in steps of 90
func (o *TextOrienter) Suggest(surface image.Image) (int, error) {
	rgba := toRGBA(surface)
	img, err := cimg.FromImage(rgba, false)
	if err != nil {
		return 0, err
	}

	sideways := o.isSideways(img)
	candidate := img
	if sideways {
		if candidate, err = cimg.FromImage(rotate90(rgba), false); err != nil {
			return 0, err
		}
	}

	orientation, err := o.orient.GetImageOrientation(candidate)
	if err != nil {
		return 0, err
	}
	return composeRotation(sideways, orientation), nil
}

// composeRotation combines the quarter turn that makes a sideways page horizontal with the
// orientation that textorient reports for the horizontal page. textorient's orientation is
// the clockwise rotation that was applied to an upright page, so we undo it.
func composeRotation(sideways bool, orientation int) int {
	rotation := 0
	if sideways {
		rotation = 90
	}
	return NormalizeRotation(rotation - orientation*90)
}

// Close frees the neural network
func (o *TextOrienter) Close() {
	o.orient.Close()
}

func (o *TextOrienter) isSideways(img *cimg.Image) bool {
	const tolerance = 5
	params := docangle.NewWhiteLinesParams()
	params.Include90Degrees = true
	params.MinDeltaDegrees = -o.MaxSkew
	params.MaxDeltaDegrees = o.MaxSkew
	_, angle := docangle.GetAngleWhiteLines(makeDocAngleImage(img), params)
	return math.Abs(math.Abs(angle)-90) <= tolerance
}

func makeDocAngleImage(img *cimg.Image) *docangle.Image {
	img = img.ToGray()
	return &docangle.Image{
		Pixels: img.Pixels,
		Width:  img.Width,
		Height: img.Height,
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	return ScaleToWidth(img, img.Bounds().Dx())
}

// rotate90 turns the image a quarter turn clockwise
func rotate90(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGBA(b.Dy()-1-y, x, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
