package audio

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// ErrClosed is returned when closing an Analyzer twice.
var ErrClosed = errors.New("analyzer already closed")

const (
	minDecibels = -100.0
	maxDecibels = -30.0
)

// Analyzer keeps the most recent window of a live PCM stream and derives
// frequency-magnitude bars from it for the visualizer.
type Analyzer struct {
	fftSize   int
	bars      int
	smoothing float64 // 0 = no smoothing, close to 1 = slow decay

	mu     sync.Mutex
	ring   []float64
	pos    int
	filled bool
	prev   []float64
	hann   []float64
	closed bool
}

// NewAnalyzer creates an analyzer with an FFT window of fftSize samples
// (rounded up to a power of two) producing the given number of bars.
func NewAnalyzer(fftSize, bars int) *Analyzer {
	n := 1
	for n < fftSize {
		n <<= 1
	}
	if bars <= 0 || bars > n/2 {
		bars = n / 2
	}
	hann := make([]float64, n)
	for i := range hann {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return &Analyzer{
		fftSize:   n,
		bars:      bars,
		smoothing: 0.8,
		ring:      make([]float64, n),
		prev:      make([]float64, bars),
		hann:      hann,
	}
}

// Write appends samples to the analysis window. Ignored after Close.
func (a *Analyzer) Write(samples []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	for _, s := range samples {
		a.ring[a.pos] = float64(s) / 32768.0
		a.pos++
		if a.pos == len(a.ring) {
			a.pos = 0
			a.filled = true
		}
	}
}

// Frequencies returns one value in [0,1] per bar, low to high frequency.
// It returns nil once the analyzer is closed.
func (a *Analyzer) Frequencies() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}

	out := make([]float64, a.bars)
	if !a.filled && a.pos == 0 {
		return out
	}

	// Oldest sample first
	window := make([]float64, a.fftSize)
	for i := range window {
		window[i] = a.ring[(a.pos+i)%a.fftSize] * a.hann[i]
	}

	spectrum := fft.FFTReal(window)
	half := a.fftSize / 2
	perBar := half / a.bars

	for b := 0; b < a.bars; b++ {
		var peak float64
		for k := b * perBar; k < (b+1)*perBar; k++ {
			m := cmplx.Abs(spectrum[k]) * 2 / float64(a.fftSize)
			if m > peak {
				peak = m
			}
		}
		v := normalizeDB(peak)
		v = a.smoothing*a.prev[b] + (1-a.smoothing)*v
		a.prev[b] = v
		out[b] = v
	}
	return out
}

// Close releases the window. Calling it twice returns ErrClosed.
func (a *Analyzer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	a.ring = nil
	a.prev = nil
	return nil
}

func normalizeDB(magnitude float64) float64 {
	if magnitude <= 0 {
		return 0
	}
	db := 20 * math.Log10(magnitude)
	return clamp((db-minDecibels)/(maxDecibels-minDecibels), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
