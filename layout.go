package pdfrotate

import "image"

// Grid geometry of the page view, in pixels
const (
	cellMargin  = 12
	badgeInset  = 4
	badgeSize   = 20
	labelHeight = 16 // Page number row under the image
)

// LayoutPages places the pages in a centered, wrapping grid whose cells are 'zoom' pixels wide,
// the way the page view displays them. The rotate badge in the top right corner of each
// cell is returned as the target's ignore region. A cell is the page image plus its label row.
func LayoutPages(pages []Page, zoom, containerWidth int) []Target {
	zoom = clampZoom(zoom)
	outer := zoom + 2*cellMargin
	perRow := max(1, containerWidth/outer)

	targets := make([]Target, 0, len(pages))
	y := 0
	for row := 0; row*perRow < len(pages); row++ {
		first := row * perRow
		last := min(first+perRow, len(pages))
		x := max(0, (containerWidth-(last-first)*outer)/2)
		rowHeight := 0
		for i := first; i < last; i++ {
			h := cellHeight(&pages[i], zoom) + labelHeight
			topLeft := image.Pt(x+cellMargin, y+cellMargin)
			bounds := image.Rectangle{Min: topLeft, Max: topLeft.Add(image.Pt(zoom, h))}
			badge := image.Rect(bounds.Max.X-badgeInset-badgeSize, bounds.Min.Y+badgeInset, bounds.Max.X-badgeInset, bounds.Min.Y+badgeInset+badgeSize)
			targets = append(targets, Target{
				Index:  i,
				Bounds: bounds,
				Ignore: badge,
			})
			rowHeight = max(rowHeight, h+2*cellMargin)
			x += outer
		}
		y += rowHeight
	}
	return targets
}

// Height of a cell that is 'width' pixels wide, preserving the surface's aspect ratio
func cellHeight(p *Page, width int) int {
	w, h := p.Size()
	if w == 0 || h == 0 {
		return width
	}
	return width * h / w
}
