package render

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/christian-lee/genrescope/internal/predict"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestRingAndPercent(t *testing.T) {
	v := Build(&predict.Result{Genre: "jazz", Confidence: 0.87})
	if v.Percent != 87 {
		t.Errorf("Percent = %d, want 87", v.Percent)
	}
	want := RingCircumference * (1 - 0.87)
	if !almostEqual(v.RingOffset, want) {
		t.Errorf("RingOffset = %v, want %v", v.RingOffset, want)
	}
	if !almostEqual(v.Circumference, 2*math.Pi*54) {
		t.Errorf("Circumference = %v", v.Circumference)
	}
	if !v.Visible {
		t.Error("View should be visible")
	}
}

func TestRingClamps(t *testing.T) {
	if got := RingOffset(1.4); got != 0 {
		t.Errorf("RingOffset(1.4) = %v, want 0", got)
	}
	if got := RingOffset(-0.2); !almostEqual(got, RingCircumference) {
		t.Errorf("RingOffset(-0.2) = %v, want full circumference", got)
	}
}

func TestBarWidthsRelativeToMax(t *testing.T) {
	v := Build(&predict.Result{
		Genre:      "rock",
		Confidence: 0.6,
		TopGenres: []predict.Genre{
			{Genre: "rock", Confidence: 0.6},
			{Genre: "pop", Confidence: 0.3},
			{Genre: "jazz", Confidence: 0.1},
		},
	})
	want := []struct {
		genre string
		width float64
	}{
		{"rock", 100},
		{"pop", 50},
		{"jazz", 16.6667},
	}
	if len(v.Bars) != len(want) {
		t.Fatalf("len(Bars) = %d, want %d", len(v.Bars), len(want))
	}
	for i, w := range want {
		b := v.Bars[i]
		if b.Genre != w.genre {
			t.Errorf("Bars[%d].Genre = %q, want %q", i, b.Genre, w.genre)
		}
		if math.Abs(b.Width-w.width) > 0.01 {
			t.Errorf("Bars[%d].Width = %.3f, want %.1f", i, b.Width, w.width)
		}
		if b.DelayMS != int64(i)*80 {
			t.Errorf("Bars[%d].DelayMS = %d, want %d", i, b.DelayMS, i*80)
		}
	}
}

func TestBarWidthsAllZero(t *testing.T) {
	got := BarWidths([]predict.Genre{{Genre: "a"}, {Genre: "b"}})
	for i, w := range got {
		if w != 0 {
			t.Errorf("width[%d] = %v, want 0", i, w)
		}
	}
}

func TestGenreGlyphs(t *testing.T) {
	tests := []struct {
		name, glyph, label string
	}{
		{"rock", "🎸", "Rock"},
		{"hiphop", "🎤", "Hip-Hop"},
		{" Classical ", "🎻", "Classical"},
		{"drum_and_bass", "🎵", "Drum And Bass"},
	}
	for _, tt := range tests {
		glyph, label := Genre(tt.name)
		if glyph != tt.glyph || label != tt.label {
			t.Errorf("Genre(%q) = %q, %q; want %q, %q", tt.name, glyph, label, tt.glyph, tt.label)
		}
	}
}

func TestBuildNil(t *testing.T) {
	if v := Build(nil); v.Visible {
		t.Error("Build(nil) should not be visible")
	}
}

func TestBuildReplacesBars(t *testing.T) {
	first := Build(&predict.Result{Genre: "pop", Confidence: 0.5, TopGenres: []predict.Genre{{Genre: "pop", Confidence: 0.5}, {Genre: "rock", Confidence: 0.4}}})
	second := Build(&predict.Result{Genre: "metal", Confidence: 0.9, TopGenres: []predict.Genre{{Genre: "metal", Confidence: 0.9}}})
	if len(first.Bars) != 2 || len(second.Bars) != 1 {
		t.Errorf("bars = %d then %d, want 2 then 1", len(first.Bars), len(second.Bars))
	}
	if second.Bars[0].Genre != "metal" {
		t.Errorf("second.Bars[0] = %+v", second.Bars[0])
	}
}

func TestTitleCaseMultibyte(t *testing.T) {
	cases := map[string]string{
		"électro":    "Électro",
		"hip_hop":    "Hip Hop",
		"über-metal": "Über Metal",
		"ça va":      "Ça Va",
		"":           "",
	}
	for in, want := range cases {
		got := titleCase(in)
		if got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("titleCase(%q) = %q, not valid UTF-8", in, got)
		}
	}
}
