package pdfrotate

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// RotatedSuffix is appended to the original file name (minus extension) of an exported document
const RotatedSuffix = "(pdf.ai-rotated)"

const ContentType = "application/pdf"

// ExportOptions controls what Export writes
type ExportOptions struct {
	OnlySelected bool // Drop pages that are not selected. By default every page is written.
}

// Export is a finished, rotated document
type Export struct {
	Name string
	Data []byte
}

// WriteFile writes the exported document into dir, and returns the full path
func (e *Export) WriteFile(dir string) (string, error) {
	path := filepath.Join(dir, e.Name)
	return path, os.WriteFile(path, e.Data, 0644)
}

// ExportError is returned when the rotated document could not be produced.
// Nothing is written in that case.
type ExportError struct {
	Stage string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export failed while %v: %v", e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ExportName derives the download name from the name of the original file
func ExportName(original string) string {
	base := filepath.Base(original)
	return strings.TrimSuffix(base, filepath.Ext(base)) + RotatedSuffix + ".pdf"
}

// WriteRotated reopens every source from its original bytes, sets the absolute rotation of
// each page from 'pages', and returns the resulting document. Pages of all sources
// are concatenated in source order.
func WriteRotated(sources []Source, pages []Page, opts ExportOptions) (*Export, error) {
	if len(sources) == 0 || len(pages) == 0 {
		return nil, ErrNoDocument
	}

	rotations := make([]map[int]int, len(sources))
	for i := range rotations {
		rotations[i] = map[int]int{}
	}
	for _, p := range pages {
		if p.Source < 0 || p.Source >= len(sources) {
			return nil, &ExportError{"collecting rotations", fmt.Errorf("page %v refers to unknown source %v", p.PageNumber, p.Source)}
		}
		rotations[p.Source][p.PageNumber] = NormalizeRotation(p.Rotation)
	}

	conf := model.NewDefaultConfiguration()
	rotated := []io.ReadSeeker{}
	for i, src := range sources {
		raw, err := setRotations(src.Data, rotations[i], conf)
		if err != nil {
			return nil, &ExportError{"rotating " + src.Name, err}
		}
		rotated = append(rotated, bytes.NewReader(raw))
	}

	var doc io.ReadSeeker = rotated[0]
	if len(rotated) > 1 {
		merged := &bytes.Buffer{}
		if err := pdfapi.MergeRaw(rotated, merged, false, conf); err != nil {
			return nil, &ExportError{"merging sources", err}
		}
		doc = bytes.NewReader(merged.Bytes())
	}

	if opts.OnlySelected {
		keep := selectedPageNumbers(sources, pages)
		if len(keep) == 0 {
			return nil, ErrNothingSelected
		}
		trimmed := &bytes.Buffer{}
		if err := pdfapi.Trim(doc, trimmed, keep, conf); err != nil {
			return nil, &ExportError{"removing unselected pages", err}
		}
		doc = bytes.NewReader(trimmed.Bytes())
	}

	out, err := io.ReadAll(doc)
	if err != nil {
		return nil, &ExportError{"serializing", err}
	}
	return &Export{
		Name: ExportName(sources[0].Name),
		Data: out,
	}, nil
}

// setRotations overwrites the /Rotate entry of every page listed in 'rotations' (keyed by 1-based page number).
// The value is absolute: whatever rotation the page had, directly or inherited, is replaced.
func setRotations(data []byte, rotations map[int]int, conf *model.Configuration) ([]byte, error) {
	ctx, err := pdfapi.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	if err := pdfapi.ValidateContext(ctx); err != nil {
		return nil, err
	}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		rotation, ok := rotations[pageNr]
		if !ok {
			continue
		}
		d, _, _, err := ctx.PageDict(pageNr, false)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fmt.Errorf("page %v has no page dictionary", pageNr)
		}
		d.Update("Rotate", types.Integer(rotation))
	}
	out := &bytes.Buffer{}
	if err := pdfapi.WriteContext(ctx, out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Page numbers of the selected pages, in the merged document
func selectedPageNumbers(sources []Source, pages []Page) []string {
	offsets := make([]int, len(sources))
	for i := 1; i < len(sources); i++ {
		offsets[i] = offsets[i-1] + sources[i-1].Pages
	}
	keep := []string{}
	for _, p := range pages {
		if p.Selected {
			keep = append(keep, strconv.Itoa(offsets[p.Source]+p.PageNumber))
		}
	}
	return keep
}
