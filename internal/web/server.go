package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/christian-lee/genrescope/internal/controller"
)

// maxUpload caps a file picked in the browser.
const maxUpload = 64 << 20

// Server serves the control panel and its JSON/SSE API.
type Server struct {
	ctrl  *controller.Controller
	state *State
	port  int

	ctx context.Context // lifetime of background submissions
	wg  sync.WaitGroup
}

func NewServer(ctx context.Context, ctrl *controller.Controller, state *State, port int) *Server {
	return &Server{ctrl: ctrl, state: state, port: port, ctx: ctx}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods("GET")
	api.HandleFunc("/events", s.handleEvents).Methods("GET")
	api.HandleFunc("/mode", s.handleMode).Methods("POST")
	api.HandleFunc("/file", s.handleSelectFile).Methods("POST")
	api.HandleFunc("/file", s.handleClearFile).Methods("DELETE")
	api.HandleFunc("/predict/file", s.handlePredictFile).Methods("POST")
	api.HandleFunc("/record/toggle", s.handleRecordToggle).Methods("POST")
	api.HandleFunc("/duration", s.handleDuration).Methods("POST")
	api.HandleFunc("/system", s.handleSystem).Methods("POST")
	api.HandleFunc("/toast/dismiss", s.handleDismiss).Methods("POST")
	return r
}

// Run serves until ctx is cancelled, then shuts down and waits for
// background submissions.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("web control panel started", "addr", srv.Addr)

	select {
	case err := <-errc:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.wg.Wait()
	return err
}

// Wait blocks until background submissions started by handlers finish.
func (s *Server) Wait() {
	s.wg.Wait()
}

// background runs a blocking controller call after the request returns.
// The outcome reaches the browser through the state stream.
func (s *Server) background(kind string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := fn(s.ctx)
		switch {
		case err == nil, errors.Is(err, controller.ErrSuperseded), errors.Is(err, context.Canceled):
		default:
			slog.Debug("background submission ended", "kind", kind, "err", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	l := s.state.Events().Subscribe()
	defer s.state.Events().Unsubscribe(l)

	initial, err := json.Marshal(s.state.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := writeEvent(w, rc, initial); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.ctx.Done():
			return
		case msg := <-l.C:
			if err := writeEvent(w, rc, msg); err != nil {
				slog.Debug("sse client gone", "err", err)
				return
			}
		}
	}
}

func writeEvent(w io.Writer, rc *http.ResponseController, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode controller.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	switch req.Mode {
	case controller.ModeFile, controller.ModeMic, controller.ModeSystem:
	default:
		writeError(w, http.StatusBadRequest, "unknown mode")
		return
	}
	s.ctrl.SetMode(req.Mode)
	writeJSON(w, http.StatusOK, map[string]any{"mode": s.ctrl.Mode()})
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	if err := s.ctrl.SelectFile(header.Filename, data); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, FileState{Name: header.Filename, Size: int64(len(data))})
}

func (s *Server) handleClearFile(w http.ResponseWriter, r *http.Request) {
	s.ctrl.ClearFile()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePredictFile(w http.ResponseWriter, r *http.Request) {
	if s.ctrl.SelectedFile() == nil {
		writeError(w, http.StatusBadRequest, controller.ErrNoFile.Error())
		return
	}
	s.background("file", s.ctrl.SubmitFile)
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (s *Server) handleRecordToggle(w http.ResponseWriter, r *http.Request) {
	if s.ctrl.Recording() {
		s.background("record", s.ctrl.StopRecording)
		writeJSON(w, http.StatusAccepted, map[string]bool{"recording": false})
		return
	}
	if err := s.ctrl.StartRecording(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"recording": true})
}

func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"seconds": s.ctrl.SetDuration(req.Seconds)})
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	if s.ctrl.Listening() {
		writeError(w, http.StatusConflict, controller.ErrListening.Error())
		return
	}
	s.background("system", s.ctrl.CaptureSystem)
	writeJSON(w, http.StatusAccepted, map[string]int{"seconds": s.ctrl.Duration()})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.ctrl.DismissError()
	w.WriteHeader(http.StatusNoContent)
}
