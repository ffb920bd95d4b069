package pdfrotate

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"sync"
)

// LoadState is the state of the document loader
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateFailed // The last load failed. Behaves like idle.
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

// Session holds the pages of the loaded documents and the user's edits to them.
// Every method is safe for concurrent use, and every mutation is atomic.
type Session struct {
	Verbose  bool     // If true, print debug information
	Orienter Orienter // Used by SuggestRotations. Created on first use if nil.

	renderer Renderer
	orientMu sync.Mutex // Held for a whole orientation pass. Guards Orienter.

	mu         sync.Mutex
	state      LoadState
	loadErr    error
	sources    []Source
	pages      []Page
	generation int // Incremented whenever the set of pages changes
	selector   *Selector
	zoom       int
}

func NewSession(renderer Renderer) *Session {
	return &Session{
		renderer: renderer,
		selector: NewSelector(),
		zoom:     DefaultZoom,
	}
}

// Load renders every page of the document, and appends the pages to the session.
// Nothing is added if any page fails to render. Only one load may run at a time.
func (s *Session) Load(name string, data []byte) ([]Page, error) {
	s.mu.Lock()
	if s.state == StateLoading {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.state = StateLoading
	s.mu.Unlock()

	pages, err := s.renderAll(name, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.loadErr = err
		s.warn("%v", err)
		return nil, err
	}
	src := len(s.sources)
	for i := range pages {
		pages[i].Source = src
	}
	s.sources = append(s.sources, Source{
		Name:  name,
		Data:  bytes.Clone(data),
		Pages: len(pages),
	})
	s.pages = append(s.pages, pages...)
	s.generation++
	s.selector.Reset()
	s.state = StateIdle
	s.loadErr = nil
	s.verbose("loaded %v: %v pages\n", name, len(pages))
	return clonePages(pages), nil
}

// Pages are rendered one after the other, in ascending order
func (s *Session) renderAll(name string, data []byte) ([]Page, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: missing file name", ErrLoad)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %v is empty", ErrLoad, name)
	}
	doc, err := s.renderer.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrLoad, name, err)
	}
	defer doc.Close()

	n := doc.NumPages()
	if n == 0 {
		return nil, fmt.Errorf("%w: %v has no pages", ErrLoad, name)
	}
	pages := make([]Page, 0, n)
	for i := range n {
		surface, err := doc.Render(i, RenderOptions{Scale: DefaultScale})
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrLoad, name, err)
		}
		pages = append(pages, newPage(0, i+1, surface))
		s.verbose("rendered page %v of %v\n", i+1, n)
	}
	return pages, nil
}

// State returns the loader state, and the error of the last load if it failed
func (s *Session) State() (LoadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.loadErr
}

// Pages returns a copy of the pages
func (s *Session) Pages() []Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePages(s.pages)
}

func (s *Session) Page(index int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return Page{}, err
	}
	return s.pages[index], nil
}

// Sources returns the loaded files, in load order
func (s *Session) Sources() []Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Source(nil), s.sources...)
}

// RotatePage replaces the rotation of one page
func (s *Session) RotatePage(index, degrees int) error {
	if !validRotation(degrees) {
		return fmt.Errorf("%w: %v", ErrRotation, degrees)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.pages[index].Rotation = degrees
	return nil
}

// ClickPage rotates one page a further 90 degrees clockwise, and returns the new rotation
func (s *Session) ClickPage(index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return 0, err
	}
	s.pages[index].Rotation += 90
	return s.pages[index].Rotation, nil
}

// RotateAll rotates every page a further 90 degrees clockwise
func (s *Session) RotateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pages {
		s.pages[i].Rotation += 90
	}
}

// ApplySelection applies one batch of selection events. If any event refers to a page
// that does not exist, or has an unknown verb, nothing is changed.
func (s *Session) ApplySelection(events []SelectionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if err := s.checkIndex(e.Index); err != nil {
			return err
		}
		if e.Verb != SelectAdd && e.Verb != SelectRemove {
			return fmt.Errorf("%w: %q", ErrSelectionVerb, e.Verb)
		}
	}
	for _, e := range events {
		s.pages[e.Index].Selected = e.Verb == SelectAdd
	}
	return nil
}

func (s *Session) SetSelected(index int, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.pages[index].Selected = selected
	return nil
}

// Gesture is one complete pointer drag over the page view
type Gesture struct {
	From    image.Point       `json:"from"`
	To      image.Point       `json:"to"`
	Shift   bool              `json:"shift"`
	Ignore  []image.Rectangle `json:"ignore"`  // Controls (eg toolbars) on which a gesture may not start
	Visible int               `json:"visible"` // Width of the page container, in pixels
}

// Select runs a drag gesture over the current page layout, and applies the resulting
// selection changes as one batch. The selector remembers what its earlier gestures
// selected until the next Load or Clear; it never looks at Page.Selected.
func (s *Session) Select(g Gesture) ([]SelectionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pages) == 0 {
		return nil, ErrNoDocument
	}

	sel := s.selector
	sel.SetTargets(LayoutPages(s.pages, s.zoom, g.Visible))
	sel.Ignore = func(p image.Point) bool {
		for _, r := range g.Ignore {
			if p.In(r) {
				return true
			}
		}
		return false
	}
	events := sel.Drag(g.From, g.To, g.Shift)
	for _, e := range events {
		s.pages[e.Index].Selected = e.Verb == SelectAdd
	}
	return events, nil
}

// Layout returns the position of every page in a container of the given width
func (s *Session) Layout(containerWidth int) []Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LayoutPages(s.pages, s.zoom, containerWidth)
}

func (s *Session) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedCount()
}

func (s *Session) selectedCount() int {
	n := 0
	for _, p := range s.pages {
		if p.Selected {
			n++
		}
	}
	return n
}

// CanDownload is false when no page is selected
func (s *Session) CanDownload() bool {
	return s.SelectedCount() != 0
}

func (s *Session) Zoom() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// SetZoom sets the display width of pages, clamped to [MinZoom, MaxZoom]
func (s *Session) SetZoom(px int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = clampZoom(px)
	return s.zoom
}

func (s *Session) ZoomIn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = clampZoom(s.zoom + ZoomStep)
	return s.zoom
}

func (s *Session) ZoomOut() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = clampZoom(s.zoom - ZoomStep)
	return s.zoom
}

// Clear discards every page and every source document
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = nil
	s.sources = nil
	s.generation++
	s.selector.Reset()
	if s.state == StateFailed {
		s.state = StateIdle
		s.loadErr = nil
	}
}

// Export produces the rotated document. It fails with ErrNothingSelected when no page
// is selected, even though by default unselected pages are exported too.
func (s *Session) Export(opts ExportOptions) (*Export, error) {
	s.mu.Lock()
	if len(s.pages) == 0 {
		s.mu.Unlock()
		return nil, ErrNoDocument
	}
	if s.selectedCount() == 0 {
		s.mu.Unlock()
		return nil, ErrNothingSelected
	}
	sources := append([]Source(nil), s.sources...)
	pages := clonePages(s.pages)
	s.mu.Unlock()

	exp, err := WriteRotated(sources, pages, opts)
	if err != nil {
		s.warn("%v", err)
		return nil, err
	}
	s.verbose("exported %v (%v bytes)\n", exp.Name, len(exp.Data))
	return exp, nil
}

// Thumbnail returns a JPEG of the page, scaled to the given width (or the zoom width if width <= 0)
func (s *Session) Thumbnail(index, width int) ([]byte, error) {
	s.mu.Lock()
	if err := s.checkIndex(index); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	surface := s.pages[index].Surface
	if width <= 0 {
		width = s.zoom
	}
	s.mu.Unlock()
	if surface == nil {
		return nil, fmt.Errorf("page %v has no surface", index+1)
	}
	return EncodeThumbnail(surface, width)
}

// SuggestRotations returns, for every page, the rotation that would make it upright
func (s *Session) SuggestRotations() ([]int, error) {
	suggestions, _, err := s.suggestRotations()
	return suggestions, err
}

// The orienter runs on a snapshot of the surfaces, without holding the session lock.
// The returned generation identifies the set of pages that the suggestions belong to.
func (s *Session) suggestRotations() ([]int, int, error) {
	s.orientMu.Lock()
	defer s.orientMu.Unlock()

	s.mu.Lock()
	if len(s.pages) == 0 {
		s.mu.Unlock()
		return nil, 0, ErrNoDocument
	}
	generation := s.generation
	surfaces := make([]image.Image, len(s.pages))
	for i, p := range s.pages {
		surfaces[i] = p.Surface
	}
	s.mu.Unlock()

	if s.Orienter == nil {
		orienter, err := NewTextOrienter()
		if err != nil {
			return nil, 0, err
		}
		s.Orienter = orienter
	}
	suggestions := make([]int, 0, len(surfaces))
	for i, surface := range surfaces {
		r, err := s.Orienter.Suggest(surface)
		if err != nil {
			return nil, 0, fmt.Errorf("page %v: %w", i+1, err)
		}
		s.verbose("page %v: suggest %v\n", i+1, r)
		suggestions = append(suggestions, r)
	}
	return suggestions, generation, nil
}

// AutoOrient sets the rotation of every page to its suggested rotation, and returns the
// number of pages whose orientation changed. It fails with ErrBusy if a document was
// loaded or cleared while the suggestions were being computed.
func (s *Session) AutoOrient() (int, error) {
	suggestions, generation, err := s.suggestRotations()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return 0, fmt.Errorf("%w: pages changed while orienting", ErrBusy)
	}
	changed := 0
	for i, r := range suggestions {
		if NormalizeRotation(s.pages[i].Rotation) != r {
			changed++
		}
		s.pages[i].Rotation = r
	}
	return changed, nil
}

func (s *Session) checkIndex(index int) error {
	if index < 0 || index >= len(s.pages) {
		return fmt.Errorf("%w: %v", ErrPageIndex, index)
	}
	return nil
}

func (s *Session) verbose(format string, args ...interface{}) {
	if s.Verbose {
		fmt.Printf(format, args...)
	}
}

// Warnings are always printed
func (s *Session) warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

func clonePages(pages []Page) []Page {
	return append([]Page(nil), pages...)
}
