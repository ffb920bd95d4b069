package pdfrotate

import (
	"errors"
	"image"
)

// Display width limits, in pixels
const (
	MinZoom     = 100
	MaxZoom     = 500
	ZoomStep    = 50
	DefaultZoom = 200
)

// DefaultScale is the scale at which pages are rasterized when a document is loaded.
// 1.0 is 72 DPI, ie one pixel per PDF point.
const DefaultScale = 1.0

var (
	ErrBusy            = errors.New("session is busy")
	ErrLoad            = errors.New("failed to load document")
	ErrNoDocument      = errors.New("no document loaded")
	ErrNothingSelected = errors.New("no pages selected")
	ErrPageIndex       = errors.New("page index out of range")
	ErrRotation        = errors.New("rotation must be a multiple of 90 degrees")
	ErrSelectionVerb   = errors.New("unknown selection verb")
)

// Page is one page of a loaded document, plus the user's edits to it
type Page struct {
	Source     int         // Index of the source document that this page came from
	PageNumber int         // 1-based position inside the source document
	Surface    image.Image // Rendered once at load time. Zoom does not re-render.
	Selected   bool
	Rotation   int // Degrees. Always a multiple of 90, but not normalized to [0,360).
}

func newPage(source, pageNumber int, surface image.Image) Page {
	return Page{
		Source:     source,
		PageNumber: pageNumber,
		Surface:    surface,
		Selected:   true,
	}
}

// Size returns the dimensions of the rendered surface
func (p *Page) Size() (width, height int) {
	if p.Surface == nil {
		return 0, 0
	}
	b := p.Surface.Bounds()
	return b.Dx(), b.Dy()
}

// Source is one loaded file. The bytes are never modified, so that export can rewrite
// a complete, valid PDF instead of rebuilding one from rendered surfaces.
type Source struct {
	Name  string
	Data  []byte
	Pages int
}

// NormalizeRotation maps any multiple of 90 into [0, 360)
func NormalizeRotation(degrees int) int {
	r := degrees % 360
	if r < 0 {
		r += 360
	}
	return r
}

func validRotation(degrees int) bool {
	return degrees%90 == 0
}

func clampZoom(px int) int {
	return min(max(px, MinZoom), MaxZoom)
}
