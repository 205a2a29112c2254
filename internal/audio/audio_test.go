package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"
)

// --- PCM helpers ---

func TestSamplesRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 1234}
	got := BytesToSamples(SamplesToBytes(in))
	if len(got) != len(in) {
		t.Fatalf("len = %d, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample[%d] = %d, want %d", i, got[i], in[i])
		}
	}
}

func TestBytesToSamplesDropsOddByte(t *testing.T) {
	if got := BytesToSamples([]byte{1, 0, 7}); len(got) != 1 || got[0] != 1 {
		t.Errorf("BytesToSamples = %v, want [1]", got)
	}
}

// --- AnalyzingReader ---

type collectSink struct {
	mu      sync.Mutex
	samples []int16
}

func (s *collectSink) Write(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, samples...)
}

// oneByteReader forces odd splits between reads.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) > 3 {
		p = p[:3]
	}
	return o.r.Read(p)
}

func TestAnalyzingReaderCarriesOddBytes(t *testing.T) {
	want := []int16{100, -200, 300, -400}
	sink := &collectSink{}
	rd := NewAnalyzingReader(oneByteReader{bytes.NewReader(SamplesToBytes(want))}, sink)

	out, err := io.ReadAll(rd)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(out) != len(want)*2 {
		t.Errorf("passthrough len = %d, want %d", len(out), len(want)*2)
	}
	if len(sink.samples) != len(want) {
		t.Fatalf("sink got %v, want %v", sink.samples, want)
	}
	for i := range want {
		if sink.samples[i] != want[i] {
			t.Errorf("sink[%d] = %d, want %d", i, sink.samples[i], want[i])
		}
	}
}

// --- Analyzer ---

func TestAnalyzerSilenceIsFlat(t *testing.T) {
	a := NewAnalyzer(256, 32)
	a.Write(make([]int16, 512))
	bars := a.Frequencies()
	if len(bars) != 32 {
		t.Fatalf("len(bars) = %d, want 32", len(bars))
	}
	for i, v := range bars {
		if v != 0 {
			t.Errorf("bar[%d] = %v, want 0 for silence", i, v)
		}
	}
}

func TestAnalyzerEmptyWindow(t *testing.T) {
	a := NewAnalyzer(256, 16)
	for i, v := range a.Frequencies() {
		if v != 0 {
			t.Errorf("bar[%d] = %v before any samples", i, v)
		}
	}
}

func TestAnalyzerPeaksAtToneBar(t *testing.T) {
	const size = 256
	const bars = 16
	a := NewAnalyzer(size, bars)

	// Tone at the centre of FFT bin 40 -> bar 40/(128/16) = 5
	bin := 40.0
	tone := make([]int16, size)
	for i := range tone {
		tone[i] = int16(600 * math.Sin(2*math.Pi*bin*float64(i)/size))
	}

	var got []float64
	for i := 0; i < 40; i++ {
		a.Write(tone)
		got = a.Frequencies()
	}

	peak := 0
	for i, v := range got {
		if v > got[peak] {
			peak = i
		}
		if v < 0 || v > 1 {
			t.Errorf("bar[%d] = %v outside [0,1]", i, v)
		}
	}
	if peak != 5 {
		t.Errorf("peak bar = %d, want 5 (bars %v)", peak, got)
	}
}

func TestAnalyzerCloseOnce(t *testing.T) {
	a := NewAnalyzer(128, 8)
	if err := a.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := a.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	a.Write([]int16{1, 2, 3})
	if got := a.Frequencies(); got != nil {
		t.Errorf("Frequencies after Close = %v, want nil", got)
	}
}

// --- WAV ---

func TestEncodeWAVHeader(t *testing.T) {
	pcm := SamplesToBytes([]int16{0, 1000, -1000, 0})
	out, err := EncodeWAV(pcm, 22050, 1)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatalf("bad header %q", out[:12])
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 22050 {
		t.Errorf("sample rate = %d, want 22050", got)
	}
	if len(out) != 44+len(pcm) {
		t.Errorf("len = %d, want %d", len(out), 44+len(pcm))
	}
}

// --- Recording ---

type pipeStream struct {
	*io.PipeReader
	mu     sync.Mutex
	closed int
}

func (p *pipeStream) Close() error {
	p.mu.Lock()
	p.closed++
	p.mu.Unlock()
	return p.PipeReader.Close()
}

func (p *pipeStream) closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func TestRecordingConcatenatesChunks(t *testing.T) {
	pr, pw := io.Pipe()
	stream := &pipeStream{PipeReader: pr}
	sink := &collectSink{}
	rec := StartRecording(stream, sink, 22050, 1)

	pw.Write(SamplesToBytes([]int16{1, 2}))
	pw.Write(SamplesToBytes([]int16{3, 4}))

	// Wait until the reader has taken both writes
	deadline := time.Now().Add(time.Second)
	for rec.Size() < 8 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	payload, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := BytesToSamples(payload[44:]); len(got) != 4 || got[0] != 1 || got[3] != 4 {
		t.Errorf("payload samples = %v, want [1 2 3 4]", got)
	}
	if stream.closes() != 1 {
		t.Errorf("stream closed %d times, want 1", stream.closes())
	}
	if len(sink.samples) != 4 {
		t.Errorf("sink saw %d samples, want 4", len(sink.samples))
	}

	// Idempotent
	again, err := rec.Stop()
	if err != nil || len(again) != len(payload) {
		t.Errorf("second Stop = %d bytes, %v", len(again), err)
	}
	if stream.closes() != 1 {
		t.Errorf("stream closed %d times after second Stop, want 1", stream.closes())
	}
}

func TestRecordingEmpty(t *testing.T) {
	pr, _ := io.Pipe()
	rec := StartRecording(&pipeStream{PipeReader: pr}, nil, 22050, 1)
	if _, err := rec.Stop(); !errors.Is(err, ErrEmptyRecording) {
		t.Errorf("Stop = %v, want ErrEmptyRecording", err)
	}
}

func TestRecordingStreamFailure(t *testing.T) {
	pr, pw := io.Pipe()
	rec := StartRecording(&pipeStream{PipeReader: pr}, nil, 22050, 1)
	pw.CloseWithError(ErrDeviceUnavailable)

	select {
	case <-rec.Done():
	case <-time.After(time.Second):
		t.Fatal("recording did not finish after stream failure")
	}
	if !errors.Is(rec.Err(), ErrDeviceUnavailable) {
		t.Errorf("Err = %v, want ErrDeviceUnavailable", rec.Err())
	}
	if _, err := rec.Stop(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Stop = %v, want ErrDeviceUnavailable", err)
	}
}
