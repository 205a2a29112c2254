package web

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/christian-lee/genrescope/internal/controller"
	"github.com/christian-lee/genrescope/internal/monitor"
	"github.com/christian-lee/genrescope/internal/predict"
	"github.com/christian-lee/genrescope/internal/render"
)

// HealthState is the badge in the header.
type HealthState struct {
	Status monitor.Status `json:"status"`
	Model  string         `json:"model,omitempty"`
	Genres []string       `json:"genres,omitempty"`
}

// FileState is the drop target. An empty name is the empty state.
type FileState struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Snapshot is the whole panel as the browser renders it.
type Snapshot struct {
	Health        HealthState     `json:"health"`
	Mode          controller.Mode `json:"mode"`
	File          FileState       `json:"file"`
	SubmitEnabled bool            `json:"submit_enabled"`
	Recording     bool            `json:"recording"`
	Elapsed       int             `json:"elapsed"` // whole seconds
	Bars          []float64       `json:"bars"`
	Listening     bool            `json:"listening"`
	Duration      int             `json:"duration"`
	MinDuration   int             `json:"min_duration"`
	MaxDuration   int             `json:"max_duration"`
	Busy          bool            `json:"busy"`
	Toast         string          `json:"toast"`
	Result        *render.View    `json:"result"`
}

// State is the browser presentation of a controller session. Every change
// is pushed to SSE subscribers as a full snapshot.
type State struct {
	mu    sync.RWMutex
	snap  Snapshot
	bcast *Broadcaster
}

var _ controller.Port = (*State)(nil)

func NewState(minDuration, maxDuration int) *State {
	return &State{
		snap: Snapshot{
			Health:      HealthState{Status: monitor.StatusChecking},
			Mode:        controller.ModeFile,
			MinDuration: minDuration,
			MaxDuration: maxDuration,
		},
		bcast: NewBroadcaster(),
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Bars = append([]float64(nil), s.snap.Bars...)
	return snap
}

// Events exposes the broadcaster for the SSE handler.
func (s *State) Events() *Broadcaster {
	return s.bcast
}

func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
	data, err := json.Marshal(s.snap)
	if err != nil {
		slog.Error("encode snapshot", "err", err)
		return
	}
	// Publish never blocks, so holding the lock keeps events in order
	s.bcast.Publish(data)
}

func (s *State) SetHealth(status monitor.Status, info *predict.Health) {
	s.update(func(snap *Snapshot) {
		snap.Health = HealthState{Status: status}
		if info != nil {
			snap.Health.Model = info.Model
			snap.Health.Genres = info.Genres
		}
	})
}

func (s *State) SetMode(m controller.Mode) {
	s.update(func(snap *Snapshot) { snap.Mode = m })
}

func (s *State) SetFile(name string, size int64) {
	s.update(func(snap *Snapshot) { snap.File = FileState{Name: name, Size: size} })
}

func (s *State) SetSubmitEnabled(enabled bool) {
	s.update(func(snap *Snapshot) { snap.SubmitEnabled = enabled })
}

func (s *State) SetRecording(active bool) {
	s.update(func(snap *Snapshot) {
		snap.Recording = active
		if !active {
			snap.Elapsed = 0
		}
	})
}

func (s *State) SetElapsed(d time.Duration) {
	s.update(func(snap *Snapshot) { snap.Elapsed = int(d / time.Second) })
}

func (s *State) DrawBars(bars []float64) {
	s.update(func(snap *Snapshot) { snap.Bars = append(snap.Bars[:0:0], bars...) })
}

func (s *State) SetListening(active bool) {
	s.update(func(snap *Snapshot) { snap.Listening = active })
}

func (s *State) SetDuration(seconds int) {
	s.update(func(snap *Snapshot) { snap.Duration = seconds })
}

func (s *State) SetBusy(busy bool) {
	s.update(func(snap *Snapshot) { snap.Busy = busy })
}

func (s *State) ShowResult(v render.View) {
	s.update(func(snap *Snapshot) { snap.Result = &v })
}

func (s *State) ShowToast(msg string) {
	s.update(func(snap *Snapshot) { snap.Toast = msg })
}

func (s *State) HideToast() {
	s.update(func(snap *Snapshot) { snap.Toast = "" })
}
