// Package web serves the page rotation UI and its JSON API
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bmharper/pdfrotate"
)

//go:embed index.html
var assets embed.FS

// Server exposes one Session over HTTP
type Server struct {
	Session        *pdfrotate.Session
	ContainerWidth int   // Default width of the page container, for selection gestures
	MaxUpload      int64 // Maximum size of an uploaded file, in bytes
	Verbose        bool  // If true, log every request
}

func NewServer(session *pdfrotate.Session) *Server {
	return &Server{
		Session:        session,
		ContainerWidth: 1000,
		MaxUpload:      200 << 20,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /api/state", s.state)
	mux.HandleFunc("POST /api/document", s.upload)
	mux.HandleFunc("DELETE /api/document", s.clear)
	mux.HandleFunc("POST /api/pages/{index}/rotate", s.rotatePage)
	mux.HandleFunc("GET /api/pages/{index}/thumbnail", s.thumbnail)
	mux.HandleFunc("POST /api/rotate-all", s.rotateAll)
	mux.HandleFunc("POST /api/auto-orient", s.autoOrient)
	mux.HandleFunc("POST /api/zoom/in", s.zoom(true))
	mux.HandleFunc("POST /api/zoom/out", s.zoom(false))
	mux.HandleFunc("POST /api/select", s.selectPages)
	mux.HandleFunc("GET /api/layout", s.layout)
	mux.HandleFunc("GET /api/download", s.download)
	return s.logRequests(mux)
}

type pageState struct {
	Index      int  `json:"index"`
	Source     int  `json:"source"`
	PageNumber int  `json:"pageNumber"`
	Selected   bool `json:"selected"`
	Rotation   int  `json:"rotation"`
	Width      int  `json:"width"`
	Height     int  `json:"height"`
}

type stateResponse struct {
	State       string      `json:"state"`
	Error       string      `json:"error,omitempty"`
	Files       []string    `json:"files"`
	Zoom        int         `json:"zoom"`
	MinZoom     int         `json:"minZoom"`
	MaxZoom     int         `json:"maxZoom"`
	Pages       []pageState `json:"pages"`
	Selected    int         `json:"selected"`
	CanDownload bool        `json:"canDownload"`
}

func (s *Server) snapshot() stateResponse {
	state, loadErr := s.Session.State()
	resp := stateResponse{
		State:   state.String(),
		Files:   []string{},
		Zoom:    s.Session.Zoom(),
		MinZoom: pdfrotate.MinZoom,
		MaxZoom: pdfrotate.MaxZoom,
		Pages:   []pageState{},
	}
	if loadErr != nil {
		resp.Error = loadErr.Error()
	}
	for _, src := range s.Session.Sources() {
		resp.Files = append(resp.Files, src.Name)
	}
	for i, p := range s.Session.Pages() {
		w, h := p.Size()
		resp.Pages = append(resp.Pages, pageState{
			Index:      i,
			Source:     p.Source,
			PageNumber: p.PageNumber,
			Selected:   p.Selected,
			Rotation:   p.Rotation,
			Width:      w,
			Height:     h,
		})
		if p.Selected {
			resp.Selected++
		}
	}
	resp.CanDownload = resp.Selected != 0
	return resp
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	page, err := assets.ReadFile("index.html")
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	if _, err := s.Session.Load(header.Filename, data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	s.Session.Clear()
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) rotatePage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", pdfrotate.ErrPageIndex, r.PathValue("index")))
		return
	}
	if _, err := s.Session.ClickPage(index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) rotateAll(w http.ResponseWriter, r *http.Request) {
	s.Session.RotateAll()
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) autoOrient(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Session.AutoOrient(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) zoom(increase bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if increase {
			s.Session.ZoomIn()
		} else {
			s.Session.ZoomOut()
		}
		writeJSON(w, http.StatusOK, s.snapshot())
	}
}

type selectResponse struct {
	Events []pdfrotate.SelectionEvent `json:"events"`
	State  stateResponse              `json:"state"`
}

func (s *Server) selectPages(w http.ResponseWriter, r *http.Request) {
	var g pdfrotate.Gesture
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	if g.Visible <= 0 {
		g.Visible = s.ContainerWidth
	}
	events, err := s.Session.Select(g)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []pdfrotate.SelectionEvent{}
	}
	writeJSON(w, http.StatusOK, selectResponse{Events: events, State: s.snapshot()})
}

func (s *Server) layout(w http.ResponseWriter, r *http.Request) {
	width := s.ContainerWidth
	if v, err := strconv.Atoi(r.URL.Query().Get("width")); err == nil && v > 0 {
		width = v
	}
	writeJSON(w, http.StatusOK, s.Session.Layout(width))
}

func (s *Server) thumbnail(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", pdfrotate.ErrPageIndex, r.PathValue("index")))
		return
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	jpeg, err := s.Session.Thumbnail(index, width)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(jpeg)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	opts := pdfrotate.ExportOptions{
		OnlySelected: r.URL.Query().Get("only-selected") == "1",
	}
	exp, err := s.Session.Export(opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", pdfrotate.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.Write(exp.Data)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Verbose {
			fmt.Printf("%v %v\n", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pdfrotate.ErrBusy),
		errors.Is(err, pdfrotate.ErrNoDocument),
		errors.Is(err, pdfrotate.ErrNothingSelected):
		return http.StatusConflict
	case errors.Is(err, pdfrotate.ErrLoad):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pdfrotate.ErrPageIndex):
		return http.StatusNotFound
	case errors.Is(err, pdfrotate.ErrRotation),
		errors.Is(err, pdfrotate.ErrSelectionVerb):
		return http.StatusBadRequest
	}
	// Includes *pdfrotate.ExportError
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
