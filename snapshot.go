package nbgallery

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-nbgallery/internal/fileutil"
)

// Snapshot defaults.
const (
	DefaultSnapshotWidth   = 1280
	DefaultSnapshotHeight  = 800
	DefaultSnapshotTimeout = 30 * time.Second
)

// SnapshotTargets names the files a snapshot writes. An empty path skips
// that output.
type SnapshotTargets struct {
	PNG string
	PDF string
}

// Snapshotter captures an exported notebook page as images or PDF.
type Snapshotter interface {
	Snapshot(ctx context.Context, page string, targets SnapshotTargets) error
	Close() error
}

// BrowserSnapshotter renders pages in headless Chrome via go-rod. The
// browser is started on first use and shared by concurrent callers.
type BrowserSnapshotter struct {
	Width   int
	Height  int
	Timeout time.Duration

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserSnapshotter creates a snapshotter with a viewport of width x
// height pixels. Zero values select the defaults.
func NewBrowserSnapshotter(width, height int, timeout time.Duration) *BrowserSnapshotter {
	if width <= 0 {
		width = DefaultSnapshotWidth
	}
	if height <= 0 {
		height = DefaultSnapshotHeight
	}
	if timeout <= 0 {
		timeout = DefaultSnapshotTimeout
	}
	return &BrowserSnapshotter{Width: width, Height: height, Timeout: timeout}
}

// ensureBrowser lazily launches and connects to Chrome.
func (s *BrowserSnapshotter) ensureBrowser() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	l := launcher.New()
	// Pre-installed browser for Docker/CI images.
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("CI") == "true" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	s.browser = browser
	return browser, nil
}

// Snapshot loads the local HTML file page and writes the requested targets.
func (s *BrowserSnapshotter) Snapshot(ctx context.Context, page string, targets SnapshotTargets) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if targets.PNG == "" && targets.PDF == "" {
		return nil
	}

	browser, err := s.ensureBrowser()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(page)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()

	tab, err := browser.Page(proto.TargetCreateTarget{URL: fileURL})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	defer func() { _ = tab.Close() }()

	p := tab.Context(ctx).Timeout(s.Timeout)
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.Width,
		Height:            s.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("%w: setting viewport: %v", ErrSnapshot, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	// marimo renders cells after load; wait for the DOM to settle.
	if err := p.WaitStable(time.Second); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if targets.PNG != "" {
		img, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			return fmt.Errorf("%w: screenshot: %v", ErrSnapshot, err)
		}
		if err := fileutil.WriteFileAtomic(targets.PNG, img); err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshot, err)
		}
	}

	if targets.PDF != "" {
		reader, err := p.PDF(&proto.PagePrintToPDF{PrintBackground: true})
		if err != nil {
			return fmt.Errorf("%w: pdf: %v", ErrSnapshot, err)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return fmt.Errorf("%w: reading pdf stream: %v", ErrSnapshot, err)
		}
		if err := fileutil.WriteFileAtomic(targets.PDF, data); err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshot, err)
		}
	}
	return nil
}

// Close releases the browser.
func (s *BrowserSnapshotter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

// Compile-time interface check.
var _ Snapshotter = (*BrowserSnapshotter)(nil)
