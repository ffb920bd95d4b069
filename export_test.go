package pdfrotate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func pagesWithRotations(source int, rotations ...int) []Page {
	pages := []Page{}
	for i, r := range rotations {
		p := newPage(source, i+1, nil)
		p.Rotation = r
		pages = append(pages, p)
	}
	return pages
}

func TestExportWritesAbsoluteRotation(t *testing.T) {
	// Pages 1 and 2 already carry rotation metadata, which must be overwritten, not added to
	original := presetRotation(t, makePDF(t, 3), 270, "1-2")
	if diff := cmp.Diff([]int{270, 270, 0}, readRotations(t, original)); diff != "" {
		t.Fatalf("fixture rotations (-want +got):\n%s", diff)
	}

	sources := []Source{{Name: "scan.pdf", Data: original, Pages: 3}}
	exp, err := WriteRotated(sources, pagesWithRotations(0, 90, 180, 0), ExportOptions{})
	if err != nil {
		t.Fatalf("WriteRotated: %v", err)
	}
	if diff := cmp.Diff([]int{90, 180, 0}, readRotations(t, exp.Data)); diff != "" {
		t.Errorf("exported rotations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{270, 270, 0}, readRotations(t, original)); diff != "" {
		t.Errorf("original bytes were modified (-want +got):\n%s", diff)
	}
}

func TestExportNormalizesRotation(t *testing.T) {
	sources := []Source{{Name: "a.pdf", Data: makePDF(t, 4), Pages: 4}}
	exp, err := WriteRotated(sources, pagesWithRotations(0, 450, -90, 720, -540), ExportOptions{})
	if err != nil {
		t.Fatalf("WriteRotated: %v", err)
	}
	if diff := cmp.Diff([]int{90, 270, 0, 180}, readRotations(t, exp.Data)); diff != "" {
		t.Errorf("exported rotations (-want +got):\n%s", diff)
	}
}

func TestExportMergesSources(t *testing.T) {
	sources := []Source{
		{Name: "first.pdf", Data: makePDF(t, 2), Pages: 2},
		{Name: "second.pdf", Data: makePDF(t, 1), Pages: 1},
	}
	pages := append(pagesWithRotations(0, 90, 0), pagesWithRotations(1, 180)...)
	exp, err := WriteRotated(sources, pages, ExportOptions{})
	if err != nil {
		t.Fatalf("WriteRotated: %v", err)
	}
	if exp.Name != "first(pdf.ai-rotated).pdf" {
		t.Errorf("unexpected name %q", exp.Name)
	}
	if diff := cmp.Diff([]int{90, 0, 180}, readRotations(t, exp.Data)); diff != "" {
		t.Errorf("exported rotations (-want +got):\n%s", diff)
	}
}

func TestExportOnlySelected(t *testing.T) {
	sources := []Source{{Name: "a.pdf", Data: makePDF(t, 3), Pages: 3}}
	pages := pagesWithRotations(0, 90, 180, 270)
	pages[1].Selected = false

	all, err := WriteRotated(sources, pages, ExportOptions{})
	if err != nil {
		t.Fatalf("WriteRotated: %v", err)
	}
	if diff := cmp.Diff([]int{90, 180, 270}, readRotations(t, all.Data)); diff != "" {
		t.Errorf("selection must not affect the default export (-want +got):\n%s", diff)
	}

	selected, err := WriteRotated(sources, pages, ExportOptions{OnlySelected: true})
	if err != nil {
		t.Fatalf("WriteRotated: %v", err)
	}
	if diff := cmp.Diff([]int{90, 270}, readRotations(t, selected.Data)); diff != "" {
		t.Errorf("exported rotations (-want +got):\n%s", diff)
	}
}

func TestExportFailureIsReported(t *testing.T) {
	sources := []Source{{Name: "broken.pdf", Data: []byte("%PDF-1.7 garbage"), Pages: 1}}
	_, err := WriteRotated(sources, pagesWithRotations(0, 90), ExportOptions{})
	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected *ExportError, got %v", err)
	}
	if _, err := WriteRotated(nil, nil, ExportOptions{}); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
}

func TestExportName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":           "report(pdf.ai-rotated).pdf",
		"archive.2024.PDF":     "archive.2024(pdf.ai-rotated).pdf",
		"noext":                "noext(pdf.ai-rotated).pdf",
		"/home/me/scans/a.pdf": "a(pdf.ai-rotated).pdf",
	}
	for in, want := range cases {
		if got := ExportName(in); got != want {
			t.Errorf("ExportName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	for in, want := range map[int]int{0: 0, 90: 90, 360: 0, 450: 90, -90: 270, -360: 0, -450: 270} {
		if got := NormalizeRotation(in); got != want {
			t.Errorf("NormalizeRotation(%v) = %v, want %v", in, got, want)
		}
	}
}
