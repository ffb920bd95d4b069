package pdfrotate

import (
	"bytes"
	"fmt"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// StripText returns a copy of the PDF in which every BT..ET text object has been removed
// from the page content streams. Everything else (paths, images, forms) is kept.
// Text inside form XObjects is not touched.
func StripText(data []byte) ([]byte, error) {
	ctx, err := pdfapi.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, err
	}
	if err := pdfapi.ValidateContext(ctx); err != nil {
		return nil, err
	}

	// Content streams may be shared between pages
	done := map[int]bool{}

	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		d, _, _, err := ctx.PageDict(pageNr, false)
		if err != nil {
			return nil, err
		}
		for _, ref := range contentRefs(d) {
			objNr := ref.ObjectNumber.Value()
			if done[objNr] {
				continue
			}
			done[objNr] = true
			if err := stripStream(ctx, ref); err != nil {
				return nil, fmt.Errorf("page %v: %w", pageNr, err)
			}
		}
	}

	out := &bytes.Buffer{}
	if err := pdfapi.WriteContext(ctx, out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func contentRefs(pageDict types.Dict) []types.IndirectRef {
	switch c := pageDict["Contents"].(type) {
	case types.IndirectRef:
		return []types.IndirectRef{c}
	case types.Array:
		refs := []types.IndirectRef{}
		for _, o := range c {
			if ir, ok := o.(types.IndirectRef); ok {
				refs = append(refs, ir)
			}
		}
		return refs
	}
	return nil
}

func stripStream(ctx *model.Context, ref types.IndirectRef) error {
	entry, found := ctx.FindTableEntryForIndRef(&ref)
	if !found || entry == nil {
		return fmt.Errorf("content stream %v not found", ref.ObjectNumber)
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return fmt.Errorf("object %v is not a stream", ref.ObjectNumber)
	}
	if len(sd.Content) == 0 {
		if err := sd.Decode(); err != nil {
			return err
		}
	}
	sd.Content = removeTextObjects(sd.Content)
	if err := sd.Encode(); err != nil {
		return err
	}
	entry.Object = sd
	return nil
}

func isPDFWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// removeTextObjects drops every BT..ET block from a content stream.
// An unterminated BT is left as is.
func removeTextObjects(content []byte) []byte {
	out := make([]byte, 0, len(content))
	copied := 0     // content[:copied] has been handled
	textStart := -1 // offset of the current BT, or -1

	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case isPDFWhitespace(c):
			i++
		case c == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}
		case c == '(':
			i = skipLiteralString(content, i)
		case c == '<' && i+1 < len(content) && content[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(content) && content[i+1] == '>':
			i += 2
		case c == '<':
			for i < len(content) && content[i] != '>' {
				i++
			}
			i++
		case c == '/':
			i++
			for i < len(content) && !isPDFWhitespace(content[i]) && !isPDFDelimiter(content[i]) {
				i++
			}
		case isPDFDelimiter(c):
			i++
		default:
			start := i
			for i < len(content) && !isPDFWhitespace(content[i]) && !isPDFDelimiter(content[i]) {
				i++
			}
			switch string(content[start:i]) {
			case "BT":
				if textStart < 0 {
					textStart = start
				}
			case "ET":
				if textStart >= 0 {
					out = append(out, content[copied:textStart]...)
					copied = i
					textStart = -1
				}
			case "ID":
				i = skipInlineImageData(content, i)
			}
		}
	}
	out = append(out, content[copied:]...)
	return out
}

// Returns the offset just past the string that starts at content[start] == '('
func skipLiteralString(content []byte, start int) int {
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(content)
}

// Returns the offset just past the EI that terminates inline image data starting at 'start'
// (which points just after the ID operator).
func skipInlineImageData(content []byte, start int) int {
	for i := start + 1; i+1 < len(content); i++ {
		if content[i] == 'E' && content[i+1] == 'I' && isPDFWhitespace(content[i-1]) &&
			(i+2 == len(content) || isPDFWhitespace(content[i+2])) {
			return i + 2
		}
	}
	return len(content)
}
