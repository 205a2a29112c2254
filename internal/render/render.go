// Package render turns prediction results into the display model used by
// every front end: the top genre glyph, the confidence ring and the ranked bars.
package render

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/christian-lee/genrescope/internal/predict"
)

const (
	// RingRadius is the radius of the confidence ring in SVG units.
	RingRadius = 54.0
	// BarStagger is the entrance delay between consecutive bars.
	BarStagger = 80 * time.Millisecond
)

// RingCircumference is the full stroke length of the confidence ring.
var RingCircumference = 2 * math.Pi * RingRadius

// Bar is one row of the ranked genre chart.
type Bar struct {
	Genre      string  `json:"genre"`
	Label      string  `json:"label"`
	Glyph      string  `json:"glyph"`
	Confidence float64 `json:"confidence"`
	Percent    int     `json:"percent"`
	Width      float64 `json:"width"` // percent of the widest bar
	DelayMS    int64   `json:"delay_ms"`
}

// View is everything needed to draw a result.
type View struct {
	Visible       bool    `json:"visible"`
	Genre         string  `json:"genre"`
	Label         string  `json:"label"`
	Glyph         string  `json:"glyph"`
	Confidence    float64 `json:"confidence"`
	Percent       int     `json:"percent"`
	Circumference float64 `json:"circumference"`
	RingOffset    float64 `json:"ring_offset"`
	Bars          []Bar   `json:"bars"`
}

var glyphs = map[string]string{
	"blues":     "🎷",
	"classical": "🎻",
	"country":   "🤠",
	"disco":     "🪩",
	"hiphop":    "🎤",
	"jazz":      "🎺",
	"metal":     "🤘",
	"pop":       "🎧",
	"reggae":    "🌴",
	"rock":      "🎸",
}

var labels = map[string]string{
	"hiphop": "Hip-Hop",
}

const defaultGlyph = "🎵"

// Build computes the display model for r. Each call yields a complete
// replacement of whatever was shown before.
func Build(r *predict.Result) View {
	if r == nil {
		return View{}
	}
	glyph, label := Genre(r.Genre)
	v := View{
		Visible:       true,
		Genre:         r.Genre,
		Label:         label,
		Glyph:         glyph,
		Confidence:    r.Confidence,
		Percent:       Percent(r.Confidence),
		Circumference: RingCircumference,
		RingOffset:    RingOffset(r.Confidence),
	}

	widths := BarWidths(r.TopGenres)
	v.Bars = make([]Bar, len(r.TopGenres))
	for i, g := range r.TopGenres {
		glyph, label := Genre(g.Genre)
		v.Bars[i] = Bar{
			Genre:      g.Genre,
			Label:      label,
			Glyph:      glyph,
			Confidence: g.Confidence,
			Percent:    Percent(g.Confidence),
			Width:      widths[i],
			DelayMS:    (time.Duration(i) * BarStagger).Milliseconds(),
		}
	}
	return v
}

// Genre maps a genre name to its glyph and display label.
func Genre(name string) (glyph, label string) {
	key := strings.ToLower(strings.TrimSpace(name))
	glyph, ok := glyphs[key]
	if !ok {
		glyph = defaultGlyph
	}
	if l, ok := labels[key]; ok {
		return glyph, l
	}
	return glyph, titleCase(key)
}

// Percent is the confidence as a rounded whole percentage.
func Percent(confidence float64) int {
	return int(math.Round(clamp01(confidence) * 100))
}

// RingOffset is the stroke-dashoffset that leaves confidence of the ring filled.
func RingOffset(confidence float64) float64 {
	return RingCircumference * (1 - clamp01(confidence))
}

// BarWidths scales each confidence relative to the largest one, in percent.
func BarWidths(genres []predict.Genre) []float64 {
	out := make([]float64, len(genres))
	top := 0.0
	for _, g := range genres {
		if g.Confidence > top {
			top = g.Confidence
		}
	}
	if top <= 0 {
		return out
	}
	for i, g := range genres {
		out[i] = 100 * math.Max(g.Confidence, 0) / top
	}
	return out
}

func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '_' || r == '-' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
