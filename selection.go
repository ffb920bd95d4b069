package pdfrotate

import (
	"image"
	"sort"
)

// SelectionVerb says whether a page entered or left the selection
type SelectionVerb string

const (
	SelectAdd    SelectionVerb = "add"
	SelectRemove SelectionVerb = "remove"
)

// SelectionEvent is the only output of the Selector. It knows nothing about pages except their index.
type SelectionEvent struct {
	Index int           `json:"index"`
	Verb  SelectionVerb `json:"verb"`
}

// Target is a selectable element inside the drag container
type Target struct {
	Index  int             `json:"index"`
	Bounds image.Rectangle `json:"bounds"`
	Ignore image.Rectangle `json:"ignore"` // Control inside the target (eg the rotate badge). Gestures starting here are not selection input.
}

// Selector turns drag gestures over a set of targets into add/remove events.
// It keeps its own selection, which starts empty, so a remove is only ever emitted for
// an element that an earlier gesture added.
type Selector struct {
	HitRate        int  // Percentage of a target's area that the drag rectangle must cover
	ContinueSelect bool // Always additive, as if shift were held
	ClickTolerance int  // Movement (in pixels) below which a gesture is a click, and not a drag

	// Ignore reports whether a point belongs to a control that must not start a selection.
	// Target.Ignore rectangles are consulted in addition to this.
	Ignore func(p image.Point) bool

	targets  []Target
	selected map[int]bool

	dragging bool
	ignored  bool
	additive bool
	origin   image.Point
	current  image.Point
}

func NewSelector() *Selector {
	return &Selector{
		HitRate:        50,
		ClickTolerance: 2,
		selected:       map[int]bool{},
	}
}

// SetTargets replaces the set of selectable elements. The selection that gestures are
// compared against is kept, because it belongs to the selector and not to the targets.
func (s *Selector) SetTargets(targets []Target) {
	s.targets = targets
}

// Reset forgets the selection, as if no gesture had ever been made
func (s *Selector) Reset() {
	s.selected = map[int]bool{}
	s.dragging = false
}

// Selected returns the indices that the selector's gestures have selected, in ascending order
func (s *Selector) Selected() []int {
	return sortedKeys(s.selected)
}

// Down starts a gesture. If shift is held, the gesture adds to the existing selection.
func (s *Selector) Down(p image.Point, shift bool) {
	s.dragging = true
	s.origin = p
	s.current = p
	s.additive = shift || s.ContinueSelect
	s.ignored = s.isIgnored(p)
}

func (s *Selector) Move(p image.Point) {
	if s.dragging {
		s.current = p
	}
}

// Up finishes the gesture, and returns the selection changes that it produced
func (s *Selector) Up(p image.Point) []SelectionEvent {
	if !s.dragging {
		return nil
	}
	s.current = p
	s.dragging = false
	if s.ignored || s.isClick() {
		return nil
	}

	inside := map[int]bool{}
	for _, t := range s.hits(s.Rect()) {
		inside[t] = true
	}

	events := []SelectionEvent{}
	if !s.additive {
		for _, idx := range sortedKeys(s.selected) {
			if !inside[idx] {
				events = append(events, SelectionEvent{Index: idx, Verb: SelectRemove})
				delete(s.selected, idx)
			}
		}
	}
	for _, idx := range sortedKeys(inside) {
		if !s.selected[idx] {
			events = append(events, SelectionEvent{Index: idx, Verb: SelectAdd})
			s.selected[idx] = true
		}
	}
	return events
}

// Drag runs a complete down/move/up gesture
func (s *Selector) Drag(from, to image.Point, shift bool) []SelectionEvent {
	s.Down(from, shift)
	s.Move(to)
	return s.Up(to)
}

// Rect is the current drag rectangle
func (s *Selector) Rect() image.Rectangle {
	return image.Rectangle{Min: s.origin, Max: s.current}.Canon()
}

func (s *Selector) isClick() bool {
	d := s.current.Sub(s.origin)
	return abs(d.X) <= s.ClickTolerance && abs(d.Y) <= s.ClickTolerance
}

func (s *Selector) isIgnored(p image.Point) bool {
	if s.Ignore != nil && s.Ignore(p) {
		return true
	}
	for _, t := range s.targets {
		if p.In(t.Ignore) {
			return true
		}
	}
	return false
}

// Returns the indices of the targets that the rectangle covers by at least HitRate percent
func (s *Selector) hits(r image.Rectangle) []int {
	hits := []int{}
	for _, t := range s.targets {
		area := t.Bounds.Dx() * t.Bounds.Dy()
		if area == 0 {
			continue
		}
		isect := r.Intersect(t.Bounds)
		covered := isect.Dx() * isect.Dy()
		if covered*100 >= area*s.HitRate && covered > 0 {
			hits = append(hits, t.Index)
		}
	}
	return hits
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
