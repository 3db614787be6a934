package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/natefinch/atomic"

	"bonsaikeeper/internal/calendar"
)

// Default capture parameters for the printable month calendar.
const (
	DefaultWidth      = 1200
	DefaultHeight     = 900
	DefaultTimeoutSec = 30

	// PreviewFile is the name of the captured PNG inside the data directory.
	PreviewFile = "preview.png"
)

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar?year=2026&month=10".
	URL string

	// OutputPath is where the PNG screenshot will be written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation.
	Timeout time.Duration

	// Headers are sent with every request the page makes, e.g. the
	// Authorization header when the server runs with Basic Auth.
	Headers map[string]string
}

// BasicAuthHeaders returns the Authorization header for username and
// password, or nil when either is empty.
func BasicAuthHeaders(username, password string) map[string]string {
	if username == "" || password == "" {
		return nil
	}
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return map[string]string{"Authorization": "Basic " + token}
}

// PreviewPath returns where the preview lives under dataDir.
func PreviewPath(dataDir string) string {
	return filepath.Join(dataDir, PreviewFile)
}

// CalendarURL builds the /calendar URL served on listen for month ym.
// Wildcard hosts (":8080", "0.0.0.0:8080") are captured via loopback.
func CalendarURL(listen string, ym calendar.YearMonth) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = listen, "80"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	q := url.Values{}
	q.Set("year", strconv.Itoa(ym.Year))
	q.Set("month", strconv.Itoa(int(ym.Month)))

	u := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(host, port),
		Path:     "/calendar",
		RawQuery: q.Encode(),
	}
	return u.String()
}

// CalendarPNG launches a headless Chromium via chromedp, navigates to
// opts.URL, waits until `[data-ready="true"]` is visible and writes a full
// page screenshot to opts.OutputPath. The file is replaced atomically so
// readers never see a partial PNG.
func CalendarPNG(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Allow final paints.
		chromedp.Sleep(200*time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := atomic.WriteFile(opts.OutputPath, bytes.NewReader(png)); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	return nil
}
