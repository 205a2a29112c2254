// Package console presents a controller session as line-oriented terminal
// output for the one-shot CLI subcommands.
package console

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/christian-lee/genrescope/internal/controller"
	"github.com/christian-lee/genrescope/internal/monitor"
	"github.com/christian-lee/genrescope/internal/predict"
	"github.com/christian-lee/genrescope/internal/render"
)

const barCols = 30

var levels = []rune(" ▁▂▃▄▅▆▇█")

type Console struct {
	mu      sync.Mutex
	w       io.Writer
	live    bool // a spectrum line is on screen
	outcome chan struct{}
}

var _ controller.Port = (*Console)(nil)

func New(w io.Writer) *Console {
	return &Console{w: w, outcome: make(chan struct{}, 1)}
}

// Outcome fires after a result or an error has been shown.
func (c *Console) Outcome() <-chan struct{} {
	return c.outcome
}

func (c *Console) settle() {
	select {
	case c.outcome <- struct{}{}:
	default:
	}
}

// printf ends any spectrum line before writing a regular line.
func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live {
		fmt.Fprintln(c.w)
		c.live = false
	}
	fmt.Fprintf(c.w, format, args...)
}

func (c *Console) SetHealth(status monitor.Status, info *predict.Health) {
	if info == nil {
		c.printf("backend: %s\n", status)
		return
	}
	c.printf("backend: %s (model %s, %d genres)\n", status, info.Model, len(info.Genres))
}

func (c *Console) SetMode(controller.Mode) {}

func (c *Console) SetFile(name string, size int64) {
	if name == "" {
		return
	}
	c.printf("file: %s (%.1f KB)\n", name, float64(size)/1024)
}

func (c *Console) SetSubmitEnabled(bool) {}

func (c *Console) SetRecording(active bool) {
	if active {
		c.printf("🎤 recording… press Enter to stop\n")
	} else {
		c.printf("recording stopped\n")
	}
}

func (c *Console) SetElapsed(time.Duration) {}

// DrawBars redraws a one-line spectrum in place.
func (c *Console) DrawBars(bars []float64) {
	if bars == nil {
		return
	}
	line := Spectrum(bars, 48)
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "\r%s", line)
	c.live = true
}

func (c *Console) SetListening(active bool) {
	if active {
		c.printf("🔊 listening to system audio…\n")
	}
}

func (c *Console) SetDuration(int) {}

func (c *Console) SetBusy(busy bool) {
	if busy {
		c.printf("analysing…\n")
	}
}

func (c *Console) ShowResult(v render.View) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s %s  %d%%\n", v.Glyph, v.Label, v.Percent)
	for _, bar := range v.Bars {
		fill := int(math.Round(bar.Width / 100 * barCols))
		fmt.Fprintf(&b, "  %-12s %s%s %3d%%\n", bar.Label,
			strings.Repeat("█", fill), strings.Repeat("░", barCols-fill), bar.Percent)
	}
	c.printf("%s", b.String())
	c.settle()
}

func (c *Console) ShowToast(msg string) {
	c.printf("error: %s\n", msg)
	c.settle()
}

func (c *Console) HideToast() {}

// Spectrum downsamples bars in [0,1] to width block characters.
func Spectrum(bars []float64, width int) string {
	if len(bars) == 0 || width <= 0 {
		return ""
	}
	width = min(width, len(bars))
	out := make([]rune, width)
	per := float64(len(bars)) / float64(width)
	for i := range out {
		lo, hi := int(float64(i)*per), int(float64(i+1)*per)
		peak := 0.0
		for _, v := range bars[lo:max(hi, lo+1)] {
			peak = max(peak, v)
		}
		peak = max(0, min(peak, 1))
		out[i] = levels[int(math.Round(peak*float64(len(levels)-1)))]
	}
	return string(out)
}
