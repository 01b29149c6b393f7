// Package capture renders the agenda HTML to a PNG screenshot with
// headless Chromium, for checking how the email lays out without sending
// anything.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	defaultWidth   = 720
	defaultHeight  = 1280
	defaultTimeout = 30 * time.Second
)

// Options defines parameters for a screenshot capture.
type Options struct {
	// HTML is the document to render.
	HTML string

	// OutputPath is where the PNG will be written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels; zero means
	// the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means a sane default.
	Timeout time.Duration
}

// PNG writes the document to a temporary file, navigates headless
// Chromium to it, and captures a full-page screenshot.
func PNG(parentCtx context.Context, opts Options) error {
	if opts.HTML == "" {
		return fmt.Errorf("capture: HTML is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	dir, err := os.MkdirTemp("", "agendamail-capture-*")
	if err != nil {
		return fmt.Errorf("capture: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	htmlPath := filepath.Join(dir, "agenda.html")
	if err := os.WriteFile(htmlPath, []byte(opts.HTML), 0o600); err != nil {
		return fmt.Errorf("capture: write HTML: %w", err)
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate("file://" + htmlPath),
		// Static document; a short settle delay covers font loading.
		chromedp.Sleep(250 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	return nil
}
