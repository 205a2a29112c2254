package controller

import (
	"time"

	"github.com/christian-lee/genrescope/internal/monitor"
	"github.com/christian-lee/genrescope/internal/notify"
	"github.com/christian-lee/genrescope/internal/predict"
	"github.com/christian-lee/genrescope/internal/render"
)

// Port is the presentation surface. The web panel and the terminal
// console both implement it; nothing in this package touches a display directly.
type Port interface {
	notify.Display

	SetHealth(status monitor.Status, info *predict.Health)
	SetMode(m Mode)
	// SetFile shows the picked file; an empty name resets the drop target.
	SetFile(name string, size int64)
	SetSubmitEnabled(enabled bool)
	SetRecording(active bool)
	SetElapsed(d time.Duration)
	// DrawBars paints one visualizer frame; nil clears it.
	DrawBars(bars []float64)
	SetListening(active bool)
	SetDuration(seconds int)
	SetBusy(busy bool)
	ShowResult(v render.View)
}
