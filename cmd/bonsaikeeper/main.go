package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"bonsaikeeper/internal/calendar"
	"bonsaikeeper/internal/capture"
	"bonsaikeeper/internal/config"
	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/scheduler"
	"bonsaikeeper/internal/storage"
	"bonsaikeeper/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		// First run could not persist the default file; keep going with it.
		appLog.Warn("failed to save default config", "config_path", flags.configPath, "error", err.Error())
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("bonsaikeeper starting",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"locale", conf.Locale,
		"data_dir", conf.DataDir,
		"subscriptions", len(conf.Subscriptions),
		"capture", conf.Capture.Enabled,
		"once", flags.once,
	)

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone; using local", err, "timezone", conf.Timezone)
		loc = time.Local
	}

	store, err := storage.New(conf.DatabaseFile())
	if err != nil {
		appLog.Error("failed to open database", err, "path", conf.DatabaseFile())
		os.Exit(1)
	}
	defer store.Close()

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	server := web.NewServer(conf, store, flags.debug)
	var captureHeaders map[string]string
	if conf.BasicAuth != nil {
		captureHeaders = capture.BasicAuthHeaders(conf.BasicAuth.Username, conf.BasicAuth.Password)
	}
	captureFn := func(ctx context.Context) error {
		ym := calendar.Today(time.Now(), loc).YearMonth()
		return capture.CalendarPNG(ctx, capture.Options{
			URL:        capture.CalendarURL(conf.Listen, ym),
			OutputPath: capture.PreviewPath(conf.DataDir),
			Width:      conf.Capture.Width,
			Height:     conf.Capture.Height,
			Headers:    captureHeaders,
		})
	}

	if flags.once {
		if err := runOnce(ctx, cancel, server, conf, captureFn); err != nil {
			appLog.Error("capture failed", err)
			os.Exit(1)
		}
		appLog.Info("preview written", "path", capture.PreviewPath(conf.DataDir))
		return
	}

	sched := scheduler.New(conf, loc, store, nil)
	sched.SetCapture(captureFn)
	go func() {
		if err := sched.Start(ctx); err != nil {
			appLog.Error("scheduler failed to start", err)
			cancel()
		}
	}()

	if err := server.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("HTTP server failed", err)
		cancel()
	}

	sched.Stop()
	appLog.Info("bonsaikeeper exiting")
}

// runOnce serves just long enough to capture the current month once.
func runOnce(ctx context.Context, cancel context.CancelFunc, server *web.Server, conf *config.Config, captureFn scheduler.CaptureFunc) error {
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Run(ctx) }()
	defer func() {
		cancel()
		<-serverErr
	}()

	if err := waitHealthy(ctx, capture.CalendarURL(conf.Listen, calendar.YearMonth{Year: 2000, Month: time.January})); err != nil {
		return err
	}
	return captureFn(ctx)
}

// waitHealthy polls /health on the host serving calendarURL.
func waitHealthy(ctx context.Context, calendarURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, calendarURL, nil)
	if err != nil {
		return err
	}
	req.URL.Path = "/health"
	req.URL.RawQuery = ""

	for i := 0; i < 50; i++ {
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fmt.Errorf("server on %s did not become healthy", req.URL.Host)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVarP(&cfg.configPath, "config", "c", "/etc/bonsaikeeper/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging and request logs")
	flag.BoolVar(&cfg.once, "once", false, "Capture the current month to preview.png and exit")

	flag.Parse()

	return cfg
}
