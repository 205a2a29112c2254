package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/christian-lee/genrescope/internal/audio"
	"github.com/christian-lee/genrescope/internal/notify"
	"github.com/christian-lee/genrescope/internal/predict"
	"github.com/christian-lee/genrescope/internal/render"
)

var (
	ErrNoFile       = errors.New("no file selected")
	ErrNotRecording = errors.New("not recording")
	ErrListening    = errors.New("system capture already in progress")
	ErrSuperseded   = errors.New("superseded by a newer submission")
)

// Mode is the active input mode tab.
type Mode string

const (
	ModeFile   Mode = "file"
	ModeMic    Mode = "mic"
	ModeSystem Mode = "system"
)

// Predictor is the prediction service as seen by the controller.
type Predictor interface {
	PredictFile(ctx context.Context, filename string, data io.Reader) (*predict.Result, error)
	PredictRecording(ctx context.Context, audio []byte) (*predict.Result, error)
	PredictSystem(ctx context.Context, seconds int) (*predict.Result, error)
}

// Microphone opens a live PCM s16le stream. Closing the stream releases the device.
type Microphone interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Analyzer samples frequency data from the live stream for the visualizer.
type Analyzer interface {
	audio.SampleSink
	Frequencies() []float64
	Close() error
}

// Options tune the controller. Zero values take the defaults below.
type Options struct {
	SampleRate      int
	Channels        int
	MaxRecord       time.Duration // natural end of a microphone recording
	FrameInterval   time.Duration // visualizer redraw period
	MinDuration     int           // system capture slider bounds, seconds
	MaxDuration     int
	DefaultDuration int
	ToastDelay      time.Duration
	FFTSize         int
	Bars            int
	NewAnalyzer     func() Analyzer
}

func (o *Options) setDefaults() {
	if o.SampleRate == 0 {
		o.SampleRate = audio.SampleRate
	}
	if o.Channels == 0 {
		o.Channels = audio.Channels
	}
	if o.MaxRecord == 0 {
		o.MaxRecord = 30 * time.Second
	}
	if o.FrameInterval == 0 {
		o.FrameInterval = time.Second / 30
	}
	if o.MinDuration == 0 {
		o.MinDuration = 5
	}
	if o.MaxDuration == 0 {
		o.MaxDuration = 30
	}
	if o.DefaultDuration == 0 {
		o.DefaultDuration = 10
	}
	if o.ToastDelay == 0 {
		o.ToastDelay = 5 * time.Second
	}
	if o.FFTSize == 0 {
		o.FFTSize = 256
	}
	if o.Bars == 0 {
		o.Bars = 64
	}
	if o.NewAnalyzer == nil {
		size, bars := o.FFTSize, o.Bars
		o.NewAnalyzer = func() Analyzer { return audio.NewAnalyzer(size, bars) }
	}
}

// SelectedFile is a file picked for upload.
type SelectedFile struct {
	Name string
	Data []byte
}

// activeRecording is the transient state of one microphone session.
type activeRecording struct {
	rec      *audio.Recording
	analyzer Analyzer
	cancel   context.CancelFunc
	loopDone chan struct{}

	once    sync.Once
	payload []byte
	err     error
}

// Controller owns the state of one front-end session: the selected input
// mode, the picked file, the live recording and the in-flight submission.
// Every display change goes through the Port.
type Controller struct {
	predictor Predictor
	mic       Microphone
	port      Port
	notifier  *notify.Notifier
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	recMu sync.Mutex // serializes recording start/stop/teardown

	mu           sync.Mutex
	mode         Mode
	file         *SelectedFile
	rec          *activeRecording
	listening    bool
	duration     int
	seq          uint64
	cancelSubmit context.CancelFunc
}

// New creates a Controller bound to ctx; cancelling ctx is equivalent to Close.
func New(ctx context.Context, predictor Predictor, mic Microphone, port Port, opts Options) *Controller {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		predictor: predictor,
		mic:       mic,
		port:      port,
		notifier:  notify.New(port, opts.ToastDelay),
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		mode:      ModeFile,
		duration:  opts.DefaultDuration,
	}
	port.SetMode(c.mode)
	port.SetDuration(c.duration)
	port.SetSubmitEnabled(false)
	return c
}

// Notifier exposes the error notifier (for config reloads).
func (c *Controller) Notifier() *notify.Notifier {
	return c.notifier
}

// DurationBounds returns the system capture slider limits.
func (c *Controller) DurationBounds() (lo, hi int) {
	return c.opts.MinDuration, c.opts.MaxDuration
}

// Mode returns the active input mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches input mode, tearing down the other modes' transient state.
func (c *Controller) SetMode(m Mode) {
	switch m {
	case ModeFile, ModeMic, ModeSystem:
	default:
		return
	}

	if m != ModeMic {
		c.discardRecording()
	}
	c.enterMode(m)
}

// enterMode records m as active and drops the selected file when leaving
// file mode. The caller handles the recording.
func (c *Controller) enterMode(m Mode) {
	c.mu.Lock()
	c.mode = m
	hadFile := c.file != nil
	if m != ModeFile {
		c.file = nil
	}
	c.mu.Unlock()

	c.port.SetMode(m)
	if m != ModeFile && hadFile {
		c.port.SetFile("", 0)
		c.port.SetSubmitEnabled(false)
	}
}

// --- File mode ---

// SelectFile holds a picked file and enables submission.
func (c *Controller) SelectFile(name string, data []byte) error {
	if name == "" {
		return ErrNoFile
	}
	c.mu.Lock()
	c.file = &SelectedFile{Name: name, Data: data}
	c.mu.Unlock()

	slog.Info("file selected", "name", name, "bytes", len(data))
	c.port.SetFile(name, int64(len(data)))
	c.port.SetSubmitEnabled(true)
	return nil
}

// ClearFile drops the selected file and resets the drop target.
func (c *Controller) ClearFile() {
	c.mu.Lock()
	c.file = nil
	c.mu.Unlock()

	c.port.SetFile("", 0)
	c.port.SetSubmitEnabled(false)
}

// SelectedFile returns the currently held file, or nil.
func (c *Controller) SelectedFile() *SelectedFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file
}

// SubmitFile uploads the selected file for prediction. Blocks until the
// response is rendered or reported.
func (c *Controller) SubmitFile(ctx context.Context) error {
	c.mu.Lock()
	f := c.file
	c.mu.Unlock()
	if f == nil {
		return ErrNoFile
	}
	return c.submit(ctx, "file", func(ctx context.Context) (*predict.Result, error) {
		return c.predictor.PredictFile(ctx, f.Name, bytes.NewReader(f.Data))
	})
}

// --- Microphone mode ---

// Recording reports whether a microphone session is active.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec != nil
}

// ToggleRecording starts a recording, or stops and submits the active one.
func (c *Controller) ToggleRecording(ctx context.Context) error {
	if c.Recording() {
		return c.StopRecording(ctx)
	}
	return c.StartRecording()
}

// StartRecording opens the microphone and starts the visualizer. An
// already active recording is torn down first and its audio discarded.
func (c *Controller) StartRecording() error {
	c.recMu.Lock()
	defer c.recMu.Unlock()

	c.mu.Lock()
	prev := c.rec
	c.rec = nil
	c.mu.Unlock()
	if prev != nil {
		slog.Info("recording restarted, discarding previous session")
		c.teardown(prev)
	}

	stream, err := c.mic.Open(c.ctx)
	if err != nil {
		c.notifier.Error(micMessage(err))
		return fmt.Errorf("open microphone: %w", err)
	}

	an := c.opts.NewAnalyzer()
	loopCtx, cancel := context.WithCancel(c.ctx)
	ar := &activeRecording{
		rec:      audio.StartRecording(stream, an, c.opts.SampleRate, c.opts.Channels),
		analyzer: an,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}

	c.mu.Lock()
	c.rec = ar
	c.mu.Unlock()

	slog.Info("recording started", "recording", ar.rec.ID, "max", c.opts.MaxRecord)
	c.enterMode(ModeMic)
	c.port.SetRecording(true)
	c.port.SetElapsed(0)

	go c.renderLoop(loopCtx, ar)
	return nil
}

// StopRecording ends the active recording, releases the device and
// submits the captured audio.
func (c *Controller) StopRecording(ctx context.Context) error {
	c.recMu.Lock()
	c.mu.Lock()
	ar := c.rec
	c.rec = nil
	c.mu.Unlock()
	if ar == nil {
		c.recMu.Unlock()
		return ErrNotRecording
	}
	payload, err := c.teardown(ar)
	c.recMu.Unlock()

	if err != nil {
		c.notifier.Error(micMessage(err))
		return err
	}
	return c.submitRecording(ctx, payload)
}

func (c *Controller) submitRecording(ctx context.Context, payload []byte) error {
	return c.submit(ctx, "record", func(ctx context.Context) (*predict.Result, error) {
		return c.predictor.PredictRecording(ctx, payload)
	})
}

// renderLoop redraws the visualizer once per frame and watches for the
// stream ending on its own or hitting the length limit.
func (c *Controller) renderLoop(ctx context.Context, ar *activeRecording) {
	defer close(ar.loopDone)

	ticker := time.NewTicker(c.opts.FrameInterval)
	defer ticker.Stop()
	limit := time.NewTimer(c.opts.MaxRecord)
	defer limit.Stop()

	lastSecond := time.Duration(-1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.port.DrawBars(ar.analyzer.Frequencies())
			if s := ar.rec.Elapsed().Truncate(time.Second); s != lastSecond {
				lastSecond = s
				c.port.SetElapsed(s)
			}
		case <-limit.C:
			slog.Info("recording reached max length", "recording", ar.rec.ID)
			c.spawn(func() { c.autoStop(ar) })
			return
		case <-ar.rec.Done():
			c.spawn(func() { c.autoStop(ar) })
			return
		}
	}
}

// autoStop finishes a recording that ended without a stop trigger.
func (c *Controller) autoStop(ar *activeRecording) {
	c.recMu.Lock()
	c.mu.Lock()
	current := c.rec == ar
	if current {
		c.rec = nil
	}
	c.mu.Unlock()
	if !current {
		c.recMu.Unlock()
		return
	}
	streamErr := ar.rec.Err()
	payload, err := c.teardown(ar)
	c.recMu.Unlock()

	if streamErr != nil {
		err = streamErr
	}
	if err != nil {
		slog.Warn("recording ended with error", "recording", ar.rec.ID, "err", err)
		c.notifier.Error(micMessage(err))
		return
	}
	_ = c.submitRecording(c.ctx, payload)
}

// teardown stops the render loop, closes the stream and the analyzer.
// It runs once per recording no matter how many exit paths reach it.
func (c *Controller) teardown(ar *activeRecording) ([]byte, error) {
	ar.once.Do(func() {
		ar.cancel()
		<-ar.loopDone
		ar.payload, ar.err = ar.rec.Stop()
		if err := ar.analyzer.Close(); err != nil {
			slog.Warn("close analyzer", "recording", ar.rec.ID, "err", err)
		}
		c.port.DrawBars(nil)
		c.port.SetRecording(false)
	})
	return ar.payload, ar.err
}

func (c *Controller) discardRecording() {
	c.recMu.Lock()
	defer c.recMu.Unlock()
	c.mu.Lock()
	ar := c.rec
	c.rec = nil
	c.mu.Unlock()
	if ar != nil {
		_, _ = c.teardown(ar)
	}
}

// --- System audio mode ---

// Duration returns the selected system capture length in seconds.
func (c *Controller) Duration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// SetDuration moves the slider, clamped to its bounds. Returns the stored value.
func (c *Controller) SetDuration(seconds int) int {
	seconds = max(c.opts.MinDuration, min(seconds, c.opts.MaxDuration))
	c.mu.Lock()
	c.duration = seconds
	c.mu.Unlock()
	c.port.SetDuration(seconds)
	return seconds
}

// Listening reports whether a system capture request is in flight.
func (c *Controller) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// CaptureSystem asks the backend to record system audio for the selected
// duration. Controls stay disabled until the answer arrives.
func (c *Controller) CaptureSystem(ctx context.Context) error {
	c.mu.Lock()
	if c.listening {
		c.mu.Unlock()
		return ErrListening
	}
	c.listening = true
	seconds := c.duration
	c.mu.Unlock()

	c.discardRecording()
	c.enterMode(ModeSystem)
	c.port.SetListening(true)
	defer func() {
		c.mu.Lock()
		c.listening = false
		c.mu.Unlock()
		c.port.SetListening(false)
	}()

	slog.Info("system capture requested", "seconds", seconds)
	return c.submit(ctx, "system", func(ctx context.Context) (*predict.Result, error) {
		return c.predictor.PredictSystem(ctx, seconds)
	})
}

// --- Submission ---

// submit runs one prediction exchange. The latest submission wins: a newer
// one cancels this one and a stale answer is never rendered.
func (c *Controller) submit(ctx context.Context, kind string, call func(context.Context) (*predict.Result, error)) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	if c.cancelSubmit != nil {
		c.cancelSubmit()
	}
	sctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(c.ctx, cancel)
	c.cancelSubmit = cancel
	c.mu.Unlock()

	defer stopAfter()
	defer cancel()

	c.port.SetBusy(true)
	res, err := call(sctx)

	c.mu.Lock()
	stale := seq != c.seq
	if !stale {
		c.cancelSubmit = nil
	}
	c.mu.Unlock()

	if stale {
		slog.Debug("dropping stale prediction", "kind", kind, "seq", seq)
		return ErrSuperseded
	}
	c.port.SetBusy(false)

	if err != nil {
		slog.Warn("prediction failed", "kind", kind, "err", err)
		c.notifier.Error(predict.Message(err))
		return err
	}

	slog.Info("prediction", "kind", kind, "genre", res.Genre, "confidence", res.Confidence)
	c.port.ShowResult(render.Build(res))
	return nil
}

// DismissError hides the toast.
func (c *Controller) DismissError() {
	c.notifier.Dismiss()
}

// Close releases every resource held by the session and waits for
// background work to finish.
func (c *Controller) Close() {
	c.cancel()
	c.discardRecording()
	c.notifier.Close()
	c.wg.Wait()
}

func (c *Controller) spawn(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func micMessage(err error) string {
	switch {
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "Microphone access denied or unavailable."
	case errors.Is(err, audio.ErrEmptyRecording):
		return "No audio was recorded. Try again."
	default:
		return fmt.Sprintf("Recording failed: %v", err)
	}
}
