package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/christian-lee/genrescope/internal/audio"
	"github.com/christian-lee/genrescope/internal/config"
	"github.com/christian-lee/genrescope/internal/console"
	"github.com/christian-lee/genrescope/internal/controller"
	"github.com/christian-lee/genrescope/internal/monitor"
	"github.com/christian-lee/genrescope/internal/predict"
	"github.com/christian-lee/genrescope/internal/render"
	"github.com/christian-lee/genrescope/internal/web"
)

var logLevel = new(slog.LevelVar)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env", "err", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(ctx)
	case "predict":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		err = predictFile(ctx, os.Args[2])
	case "record":
		err = record(ctx, secondsArg(2))
	case "system":
		err = system(ctx, secondsArg(2))
	case "health":
		err = health(ctx)
	case "genres":
		err = genres(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error(os.Args[1]+" failed", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  genrescope serve             Start the web control panel")
	fmt.Println("  genrescope predict <file>    Classify an audio file")
	fmt.Println("  genrescope record [seconds]  Record from the microphone and classify")
	fmt.Println("  genrescope system [seconds]  Have the backend capture system audio and classify")
	fmt.Println("  genrescope health            Check the prediction service")
	fmt.Println("  genrescope genres            List supported genres")
	fmt.Println()
	fmt.Println("Config file: $GENRESCOPE_CONFIG (default config.yaml)")
}

// secondsArg parses an optional positive integer argument; 0 means unset.
func secondsArg(i int) int {
	if len(os.Args) <= i {
		return 0
	}
	n, err := strconv.Atoi(os.Args[i])
	if err != nil || n <= 0 {
		fmt.Fprintf(os.Stderr, "invalid seconds: %s\n", os.Args[i])
		os.Exit(1)
	}
	return n
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cfg)
	return cfg, nil
}

func applyLogLevel(cfg *config.Config) {
	if lvl, err := config.ParseLevel(cfg.Log.Level); err == nil {
		logLevel.Set(lvl)
	}
}

func newMicrophone(cfg *config.Config) *audio.Capturer {
	mic := audio.NewCapturer(cfg.Capture.Format, cfg.Capture.Device)
	mic.FFmpeg = cfg.Capture.FFmpeg
	return mic
}

func controllerOptions(cfg *config.Config) controller.Options {
	return controller.Options{
		MaxRecord:       cfg.MaxRecord(),
		FrameInterval:   cfg.FrameInterval(),
		MinDuration:     cfg.System.MinSeconds,
		MaxDuration:     cfg.System.MaxSeconds,
		DefaultDuration: cfg.System.DefaultSeconds,
		ToastDelay:      cfg.DismissDelay(),
		FFTSize:         cfg.Visualizer.FFTSize,
		Bars:            cfg.Visualizer.Bars,
	}
}

func serve(ctx context.Context) error {
	hc, err := config.NewHotConfig(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := hc.Get()
	applyLogLevel(cfg)

	client := predict.NewClient(cfg.Backend.URL, cfg.BackendTimeout())
	state := web.NewState(cfg.System.MinSeconds, cfg.System.MaxSeconds)
	ctrl := controller.New(ctx, client, newMicrophone(cfg), state, controllerOptions(cfg))
	defer ctrl.Close()

	healthClient := predict.NewClient(cfg.Backend.URL, 10*time.Second)
	mon := monitor.NewHealthMonitor(healthClient, cfg.HealthInterval())
	events := make(chan monitor.HealthEvent, 4)
	go mon.Watch(ctx, events)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				state.SetHealth(ev.Status, ev.Info)
			}
		}
	}()

	hc.OnReload(func(c *config.Config) {
		applyLogLevel(c)
		client.SetBaseURL(c.Backend.URL)
		healthClient.SetBaseURL(c.Backend.URL)
		mon.SetInterval(c.HealthInterval())
		ctrl.Notifier().SetDelay(c.DismissDelay())
	})
	if err := hc.Watch(ctx); err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	}

	slog.Info("genrescope started",
		"backend", cfg.Backend.URL,
		"web", fmt.Sprintf("http://localhost:%d", cfg.Web.Port),
	)
	return web.NewServer(ctx, ctrl, state, cfg.Web.Port).Run(ctx)
}

// oneShot builds a console-backed session for the CLI subcommands.
func oneShot(ctx context.Context, cfg *config.Config) (*controller.Controller, *console.Console) {
	con := console.New(os.Stdout)
	client := predict.NewClient(cfg.Backend.URL, cfg.BackendTimeout())
	ctrl := controller.New(ctx, client, newMicrophone(cfg), con, controllerOptions(cfg))
	return ctrl, con
}

func predictFile(ctx context.Context, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ctrl, _ := oneShot(ctx, cfg)
	defer ctrl.Close()
	if err := ctrl.SelectFile(filepath.Base(path), data); err != nil {
		return err
	}
	return ctrl.SubmitFile(ctx)
}

func record(ctx context.Context, seconds int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if seconds > 0 {
		cfg.Capture.MaxSeconds = seconds
	}

	// The session outlives Ctrl-C so the captured audio can still be sent
	ctrl, con := oneShot(context.WithoutCancel(ctx), cfg)
	defer ctrl.Close()
	if err := ctrl.StartRecording(); err != nil {
		return err
	}

	enter := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(enter)
	}()

	select {
	case <-con.Outcome():
		// stopped by itself at the length limit
		return nil
	case <-enter:
	case <-ctx.Done():
		ctx = context.WithoutCancel(ctx)
	}

	err = ctrl.StopRecording(ctx)
	if errors.Is(err, controller.ErrNotRecording) {
		<-con.Outcome()
		return nil
	}
	return err
}

func system(ctx context.Context, seconds int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctrl, _ := oneShot(ctx, cfg)
	defer ctrl.Close()

	if seconds > 0 {
		if got := ctrl.SetDuration(seconds); got != seconds {
			lo, hi := ctrl.DurationBounds()
			slog.Warn("duration clamped", "requested", seconds, "used", got, "min", lo, "max", hi)
		}
	}
	return ctrl.CaptureSystem(ctx)
}

func health(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := predict.NewClient(cfg.Backend.URL, 10*time.Second)
	con := console.New(os.Stdout)

	info, err := client.Health(ctx)
	if err != nil {
		con.SetHealth(monitor.StatusOffline, nil)
		return errors.New(predict.Message(err))
	}
	con.SetHealth(monitor.StatusOnline, info)
	return nil
}

func genres(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := predict.NewClient(cfg.Backend.URL, 10*time.Second)
	list, err := client.Genres(ctx)
	if err != nil {
		return errors.New(predict.Message(err))
	}
	for _, g := range list {
		glyph, label := render.Genre(g)
		fmt.Printf("%s %s\n", glyph, label)
	}
	return nil
}
