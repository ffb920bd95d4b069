package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bmharper/pdfrotate"
)

// Rotates pages of one or more PDF files from the command line, and writes
// <name>(pdf.ai-rotated).pdf. Multiple files are concatenated, in order.
//
//	rotate -page 2:90 -page 3:180 -all file.pdf

func check(err error) {
	if err != nil {
		panic(err)
	}
}

// pageRotations is a repeatable "N:DEG" flag. N is the 1-based page position across all files.
type pageRotations map[int]int

func (p pageRotations) String() string {
	parts := []string{}
	for page, deg := range p {
		parts = append(parts, fmt.Sprintf("%d:%d", page, deg))
	}
	return strings.Join(parts, ",")
}

func (p pageRotations) Set(v string) error {
	page, deg, ok := strings.Cut(v, ":")
	if !ok {
		return fmt.Errorf("expected N:DEG, got %q", v)
	}
	n, err := strconv.Atoi(page)
	if err != nil {
		return err
	}
	d, err := strconv.Atoi(deg)
	if err != nil {
		return err
	}
	p[n] = d
	return nil
}

// pageList is a comma separated list of 1-based page positions
type pageList []int

func (p *pageList) String() string {
	return fmt.Sprint(*p)
}

func (p *pageList) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		*p = append(*p, n)
	}
	return nil
}

func main() {
	rotations := pageRotations{}
	deselect := pageList{}
	flag.Var(rotations, "page", "Set the rotation of one page, as N:DEG (repeatable)")
	flag.Var(&deselect, "deselect", "Comma separated pages to deselect")
	rotateAll := flag.Bool("all", false, "Rotate every page a further 90 degrees (applied after -auto and -page)")
	auto := flag.Bool("auto", false, "Rotate sideways and upside down pages upright")
	onlySelected := flag.Bool("only-selected", false, "Drop deselected pages from the output")
	outDir := flag.String("out", ".", "Output directory")
	verbose := flag.Bool("v", false, "Verbose")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Printf("Usage: %s [options] <filename> [filename...]\n", os.Args[0])
		flag.PrintDefaults()
		return
	}

	session := pdfrotate.NewSession(pdfrotate.NewFitzRenderer())
	session.Verbose = *verbose
	for _, filename := range flag.Args() {
		data, err := os.ReadFile(filename)
		check(err)
		_, err = session.Load(filename, data)
		check(err)
	}

	if *auto {
		changed, err := session.AutoOrient()
		check(err)
		fmt.Printf("Auto orient changed %v pages\n", changed)
	}
	for page, deg := range rotations {
		check(session.RotatePage(page-1, deg))
	}
	if *rotateAll {
		session.RotateAll()
	}
	for _, page := range deselect {
		check(session.SetSelected(page-1, false))
	}

	exp, err := session.Export(pdfrotate.ExportOptions{OnlySelected: *onlySelected})
	check(err)
	path, err := exp.WriteFile(*outDir)
	check(err)
	fmt.Printf("Wrote %v\n", path)
}
