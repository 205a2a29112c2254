package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// ErrDeviceUnavailable is returned when the input device could not be
// opened (missing, busy or access denied).
var ErrDeviceUnavailable = errors.New("microphone unavailable or access denied")

// Capturer records from a local input device via ffmpeg.
type Capturer struct {
	SampleRate int
	Channels   int
	Format     string // ffmpeg input format: pulse, alsa, avfoundation, dshow
	Device     string
	FFmpeg     string
}

func NewCapturer(format, device string) *Capturer {
	return &Capturer{
		SampleRate: SampleRate,
		Channels:   Channels,
		Format:     format,
		Device:     device,
		FFmpeg:     "ffmpeg",
	}
}

// Open starts capturing and returns a reader of raw PCM s16le data.
// Closing the reader stops ffmpeg and releases the device.
func (c *Capturer) Open(ctx context.Context) (io.ReadCloser, error) {
	args := []string{
		"-f", c.Format,
		"-i", c.Device,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", c.SampleRate),
		"-ac", fmt.Sprintf("%d", c.Channels),
		"-f", "s16le",
		"-loglevel", "error",
		"-",
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, c.FFmpeg, args...)
	stderr := &syncBuffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrDeviceUnavailable, err)
	}

	slog.Info("microphone capture started (ffmpeg)", "format", c.Format, "device", c.Device)

	return &captureStream{cmd: cmd, stdout: stdout, stderr: stderr, cancel: cancel}, nil
}

type captureStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *syncBuffer
	cancel context.CancelFunc

	mu   sync.Mutex
	read int64

	closeOnce sync.Once
}

func (s *captureStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	s.mu.Lock()
	s.read += int64(n)
	total := s.read
	s.mu.Unlock()

	// ffmpeg exiting before producing a single sample means it never got the device
	if err == io.EOF && total == 0 {
		msg := strings.TrimSpace(s.stderr.String())
		if msg == "" {
			return n, ErrDeviceUnavailable
		}
		return n, fmt.Errorf("%w: %s", ErrDeviceUnavailable, msg)
	}
	return n, err
}

func (s *captureStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.cmd.Wait()
		slog.Info("microphone capture stopped")
	})
	return nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() > 4096 {
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
