package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyRecording is returned by Stop when nothing was captured.
var ErrEmptyRecording = errors.New("no audio was recorded")

const chunkSize = 4096

// Recording accumulates PCM chunks from a live stream until stopped.
type Recording struct {
	ID         string
	SampleRate int
	Channels   int

	stream  io.ReadCloser
	started time.Time
	done    chan struct{}
	stopped atomic.Bool

	mu      sync.Mutex
	chunks  [][]byte
	size    int
	readErr error

	stopOnce sync.Once
	payload  []byte
	stopErr  error
}

// StartRecording begins reading stream in the background. Samples are
// also handed to sink, which may be nil.
func StartRecording(stream io.ReadCloser, sink SampleSink, sampleRate, channels int) *Recording {
	r := &Recording{
		ID:         uuid.NewString(),
		SampleRate: sampleRate,
		Channels:   channels,
		stream:     stream,
		started:    time.Now(),
		done:       make(chan struct{}),
	}
	go r.run(NewAnalyzingReader(stream, sink))
	return r
}

func (r *Recording) run(rd io.Reader) {
	defer close(r.done)
	buf := make([]byte, chunkSize)
	for {
		n, err := rd.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.mu.Lock()
			r.chunks = append(r.chunks, chunk)
			r.size += n
			r.mu.Unlock()
		}
		if err != nil {
			// Errors after Stop come from closing the stream under the reader
			if err != io.EOF && !r.stopped.Load() {
				r.mu.Lock()
				r.readErr = err
				r.mu.Unlock()
			}
			return
		}
	}
}

// Done is closed once the stream has ended, whether by Stop or on its own.
func (r *Recording) Done() <-chan struct{} {
	return r.done
}

// Err reports why the stream ended before Stop, if it failed.
func (r *Recording) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readErr
}

// Elapsed is the wall time since the recording started.
func (r *Recording) Elapsed() time.Duration {
	return time.Since(r.started)
}

// Size is the number of PCM bytes captured so far.
func (r *Recording) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Stop closes the stream, waits for the reader and returns the captured
// audio as a WAV payload. Subsequent calls return the same result.
func (r *Recording) Stop() ([]byte, error) {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		if err := r.stream.Close(); err != nil {
			slog.Warn("close capture stream", "recording", r.ID, "err", err)
		}
		<-r.done

		r.mu.Lock()
		pcm := make([]byte, 0, r.size)
		for _, c := range r.chunks {
			pcm = append(pcm, c...)
		}
		r.chunks = nil
		readErr := r.readErr
		r.mu.Unlock()

		if len(pcm) < 2 {
			if readErr != nil {
				r.stopErr = readErr
			} else {
				r.stopErr = ErrEmptyRecording
			}
			return
		}

		payload, err := EncodeWAV(pcm, r.SampleRate, r.Channels)
		if err != nil {
			r.stopErr = fmt.Errorf("encode recording: %w", err)
			return
		}
		r.payload = payload
		slog.Info("recording stopped", "recording", r.ID, "bytes", len(pcm),
			"elapsed", r.Elapsed().Round(100*time.Millisecond))
	})
	return r.payload, r.stopErr
}
