package pdfrotate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// makePDF builds an n page PDF, with one image per page
func makePDF(t *testing.T, n int) []byte {
	t.Helper()
	images := []io.Reader{}
	for i := range n {
		img := image.NewRGBA(image.Rect(0, 0, 60, 80))
		for y := 0; y < 80; y++ {
			for x := 0; x < 60; x++ {
				img.Set(x, y, color.RGBA{uint8(40 * i), uint8(x * 4), uint8(y * 3), 255})
			}
		}
		buf := &bytes.Buffer{}
		if err := png.Encode(buf, img); err != nil {
			t.Fatalf("png: %v", err)
		}
		images = append(images, buf)
	}
	output := &bytes.Buffer{}
	importConfig := pdfcpu.DefaultImportConfig()
	importConfig.Scale = 1
	if err := pdfapi.ImportImages(nil, output, images, importConfig, nil); err != nil {
		t.Fatalf("ImportImages: %v", err)
	}
	return output.Bytes()
}

// textPageContent draws a blue square in the bottom left, and the word Hello above it
const textPageContent = "0 0 1 rg 10 10 50 50 re f\nBT /F1 24 Tf 20 100 Td (Hello) Tj ET\n"

// makeTextPDF builds a 200x200 point, one page PDF with an uncompressed content stream
func makeTextPDF(t *testing.T, content string) []byte {
	t.Helper()
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.4\n")
	offsets := []int{}
	for i, obj := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, offset := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// pageContent returns the decoded content streams of the first page
func pageContent(t *testing.T, data []byte) string {
	t.Helper()
	ctx, err := pdfapi.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("ReadContext: %v", err)
	}
	d, _, _, err := ctx.PageDict(1, false)
	if err != nil {
		t.Fatalf("PageDict: %v", err)
	}
	content := []byte{}
	for _, ref := range contentRefs(d) {
		sd, _, err := ctx.DereferenceStreamDict(ref)
		if err != nil || sd == nil {
			t.Fatalf("content stream %v: %v", ref.ObjectNumber, err)
		}
		if err := sd.Decode(); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		content = append(content, sd.Content...)
	}
	return string(content)
}

// presetRotation returns a copy of the PDF in which the given pages carry a relative rotation
func presetRotation(t *testing.T, data []byte, degrees int, pages ...string) []byte {
	t.Helper()
	out := &bytes.Buffer{}
	if err := pdfapi.Rotate(bytes.NewReader(data), out, degrees, pages, nil); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	return out.Bytes()
}

// readRotations returns the effective /Rotate value of every page
func readRotations(t *testing.T, data []byte) []int {
	t.Helper()
	ctx, err := pdfapi.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("ReadContext: %v", err)
	}
	if err := pdfapi.ValidateContext(ctx); err != nil {
		t.Fatalf("ValidateContext: %v", err)
	}
	rotations := []int{}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		d, _, inherited, err := ctx.PageDict(pageNr, false)
		if err != nil {
			t.Fatalf("PageDict %v: %v", pageNr, err)
		}
		if r := d.IntEntry("Rotate"); r != nil {
			rotations = append(rotations, *r)
		} else if inherited != nil {
			rotations = append(rotations, inherited.Rotate)
		} else {
			rotations = append(rotations, 0)
		}
	}
	return rotations
}

// pdfcpuRenderer stands in for MuPDF. It counts pages with pdfcpu, so it accepts exactly
// the documents that export can rewrite, and "renders" blank surfaces.
type pdfcpuRenderer struct {
	opened chan struct{} // If not nil, signalled when Open starts
	resume chan struct{} // If not nil, Open blocks until this is closed
	fail   int           // If > 0, rendering this 1-based page fails
	calls  []int         // Render calls, in order
}

func (r *pdfcpuRenderer) Open(data []byte) (RenderDocument, error) {
	if r.opened != nil {
		r.opened <- struct{}{}
	}
	if r.resume != nil {
		<-r.resume
	}
	n, err := pdfapi.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, err
	}
	return &blankDocument{r: r, n: n}, nil
}

type blankDocument struct {
	r *pdfcpuRenderer
	n int
}

func (d *blankDocument) NumPages() int {
	return d.n
}

func (d *blankDocument) Render(pageIdx int, opts RenderOptions) (image.Image, error) {
	d.r.calls = append(d.r.calls, pageIdx)
	if d.r.fail == pageIdx+1 {
		return nil, errors.New("render failed")
	}
	w := int(60 * opts.Scale)
	h := int(80 * opts.Scale)
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func (d *blankDocument) Close() error {
	return nil
}

func newTestSession(t *testing.T) (*Session, *pdfcpuRenderer) {
	t.Helper()
	r := &pdfcpuRenderer{}
	return NewSession(r), r
}

func rotationsOf(pages []Page) []int {
	r := []int{}
	for _, p := range pages {
		r = append(r, p.Rotation)
	}
	return r
}

func selectionOf(pages []Page) []bool {
	s := []bool{}
	for _, p := range pages {
		s = append(s, p.Selected)
	}
	return s
}
