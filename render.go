package pdfrotate

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// RenderOptions controls how a single page is rasterized
type RenderOptions struct {
	Scale    float64 // 1.0 = 72 DPI
	HideText bool    // If true, text is not drawn
}

// Renderer opens PDF bytes for rasterization
type Renderer interface {
	Open(data []byte) (RenderDocument, error)
}

// RenderDocument is an opened PDF that can be rasterized one page at a time
type RenderDocument interface {
	NumPages() int
	Render(pageIdx int, opts RenderOptions) (image.Image, error)
	Close() error
}

// textToggle is the process-wide "draw text" switch. MuPDF has no per-call option for
// suppressing text, so the switch is global, and every render must hold the guard.
// Renders that go through the guard are therefore serialized.
type textToggle struct {
	mu     sync.Mutex
	hidden bool
}

var textDrawing textToggle

// acquire locks the toggle and sets it for the duration of one render.
// The returned release restores the previous value and unlocks.
func (t *textToggle) acquire(hide bool) (release func()) {
	t.mu.Lock()
	prev := t.hidden
	t.hidden = hide
	return func() {
		t.hidden = prev
		t.mu.Unlock()
	}
}

// FitzRenderer rasterizes pages with MuPDF, via go-fitz
type FitzRenderer struct {
}

func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

func (r *FitzRenderer) Open(data []byte) (RenderDocument, error) {
	fz, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return &fitzDocument{
		fz:   fz,
		data: data,
	}, nil
}

type fitzDocument struct {
	fz       *fitz.Document
	data     []byte
	textless *fitz.Document // Lazily built copy of the document with text objects removed
}

func (d *fitzDocument) NumPages() int {
	return d.fz.NumPage()
}

func (d *fitzDocument) Render(pageIdx int, opts RenderOptions) (image.Image, error) {
	if pageIdx < 0 || pageIdx >= d.fz.NumPage() {
		return nil, fmt.Errorf("page %v: %w", pageIdx+1, ErrPageIndex)
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	release := textDrawing.acquire(opts.HideText)
	defer release()

	fz := d.fz
	if textDrawing.hidden {
		var err error
		if fz, err = d.textlessDocument(); err != nil {
			return nil, err
		}
	}
	img, err := fz.ImageDPI(pageIdx, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("render page %v: %w", pageIdx+1, err)
	}
	return img, nil
}

// Must be called with textDrawing held
func (d *fitzDocument) textlessDocument() (*fitz.Document, error) {
	if d.textless != nil {
		return d.textless, nil
	}
	stripped, err := StripText(d.data)
	if err != nil {
		return nil, fmt.Errorf("strip text: %w", err)
	}
	fz, err := fitz.NewFromMemory(stripped)
	if err != nil {
		return nil, err
	}
	d.textless = fz
	return fz, nil
}

func (d *fitzDocument) Close() error {
	if d.textless != nil {
		d.textless.Close()
	}
	return d.fz.Close()
}
