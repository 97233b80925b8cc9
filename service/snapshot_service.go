package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-pdf/fpdf"
)

// waitAssetsScript resolves once webfonts are ready and every <img> has loaded
// or errored. An erroring image counts as loaded so a dead URL never hangs the
// capture; each image gets a 5 second cap on top of the browser's own timeout.
const waitAssetsScript = `
(function() {
	return Promise.all([
		document.fonts.ready,
		Promise.all(Array.from(document.querySelectorAll('img')).map(img => {
			return new Promise((resolve) => {
				if (img.complete) {
					resolve();
					return;
				}
				const timeout = setTimeout(() => resolve(), 5000);
				img.onload = () => { clearTimeout(timeout); resolve(); };
				img.onerror = () => { clearTimeout(timeout); resolve(); };
			});
		}))
	]);
})();
`

// minPlausiblePNG is the smallest encoded size treated as a real render; below
// it the capture is retried on the next tier.
const minPlausiblePNG = 1000

// maxDeviceScale caps the render scale factor.
const maxDeviceScale = 3.0

// SnapshotResult is the outcome of one capture attempt chain.
type SnapshotResult struct {
	Success bool
	PNG     []byte
	Err     error
}

// SnapshotServiceInterface defines the contract for rasterizing the rendered
// preview region.
type SnapshotServiceInterface interface {
	CaptureCard(chromedpCtx context.Context, templateType string) *SnapshotResult
	CaptureCardOnce(ctx context.Context, templateType string) *SnapshotResult
	NewBrowserContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc)
	PDFFromPNG(data []byte) ([]byte, error)
}

// SnapshotService converts the live rendered preview into a raster image using
// a headless browser, degrading through progressively more conservative capture
// strategies. The tiers have non-overlapping blind spots (CSS features, image
// cross-origin policy, font metrics), so a blank result from one tier is
// retried on the next rather than failing outright.
type SnapshotService struct {
	baseURL     string
	scale       float64
	settleDelay time.Duration
}

// Ensure SnapshotService implements SnapshotServiceInterface
var _ SnapshotServiceInterface = (*SnapshotService)(nil)

// NewSnapshotService creates a SnapshotService capturing from the given base
// URL (e.g. "http://localhost:8080").
func NewSnapshotService(baseURL string) *SnapshotService {
	scale := 2.0
	if scale > maxDeviceScale {
		scale = maxDeviceScale
	}
	return &SnapshotService{
		baseURL:     baseURL,
		scale:       scale,
		settleDelay: 80 * time.Millisecond,
	}
}

// detectChromePath detects the path to a Chrome/Chromium executable. Checks the
// CHROME_PATH env var first, then common installation paths.
func detectChromePath() string {
	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		if _, err := os.Stat(chromePath); err == nil {
			return chromePath
		}
	}

	paths := []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// NewBrowserContext builds an allocator plus browser context chain with the
// given timeout. The returned cancel func tears down both.
func (s *SnapshotService) NewBrowserContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctxTimeout, cancelTimeout := context.WithTimeout(ctx, timeout)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox, // Required for running in Docker/containers
	)
	if chromePath := detectChromePath(); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctxTimeout, opts...)
	chromedpCtx, cancelChromedp := chromedp.NewContext(allocCtx)

	cancel := func() {
		cancelChromedp()
		cancelAlloc()
		cancelTimeout()
	}
	return chromedpCtx, cancel
}

// CaptureCardOnce captures in a fresh browser context. Single-card exports use
// this; the bulk loop keeps one context alive and calls CaptureCard instead.
func (s *SnapshotService) CaptureCardOnce(ctx context.Context, templateType string) *SnapshotResult {
	chromedpCtx, cancel := s.NewBrowserContext(ctx, 30*time.Second)
	defer cancel()
	return s.CaptureCard(chromedpCtx, templateType)
}

// CaptureCard navigates the render endpoint and rasterizes the card element.
//
// Tier 1 is a direct element screenshot (fast, high fidelity for standard CSS).
// A capture is judged blank by sampling the canvas center pixel: fully opaque
// and near-white (R,G,B all > 250) means the renderer produced nothing. Blank
// or implausibly small results fall through to tier 2, a full-viewport
// screenshot, and finally tier 3, a manual CDP capture clipped to the card's
// box with a small oversize so borders and shadows are not clipped at the edge.
func (s *SnapshotService) CaptureCard(chromedpCtx context.Context, templateType string) *SnapshotResult {
	renderURL := fmt.Sprintf("%s/render?template=%s", s.baseURL, templateType)

	viewportW, viewportH := 520, 1600
	if templateType == TemplateLandscape {
		viewportW, viewportH = 820, 1200
	}

	err := chromedp.Run(chromedpCtx,
		chromedp.EmulateViewport(int64(viewportW), int64(viewportH), chromedp.EmulateScale(s.scale)),
		chromedp.Navigate(renderURL),
		chromedp.WaitReady("body"),
		chromedp.WaitVisible("#card", chromedp.ByID),
		chromedp.Evaluate(waitAssetsScript, nil, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.Sleep(s.settleDelay),
	)
	if err != nil {
		return &SnapshotResult{Success: false, Err: fmt.Errorf("failed to load render page: %w", err)}
	}

	// Tier 1: element screenshot.
	var buf []byte
	err = chromedp.Run(chromedpCtx, chromedp.Screenshot("#card", &buf, chromedp.ByID))
	if err == nil && !s.isBlank(buf) {
		return &SnapshotResult{Success: true, PNG: buf}
	}
	log.Printf("⚠️  Snapshot tier 1 blank or failed (err=%v, bytes=%d), retrying full screenshot", err, len(buf))

	// Tier 2: full-viewport screenshot.
	err = chromedp.Run(chromedpCtx, chromedp.FullScreenshot(&buf, 100))
	if err == nil && !s.isBlank(buf) {
		return &SnapshotResult{Success: true, PNG: buf}
	}
	log.Printf("⚠️  Snapshot tier 2 blank or failed (err=%v, bytes=%d), retrying clipped capture", err, len(buf))

	// Tier 3: manual CDP capture clipped to the card's box, slightly oversized
	// to keep borders and shadows inside the raster.
	var rect struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	}
	err = chromedp.Run(chromedpCtx,
		chromedp.Evaluate(`(function() {
			const r = document.querySelector('#card').getBoundingClientRect();
			return { x: r.x, y: r.y, w: r.width, h: r.height };
		})();`, &rect),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithClip(&page.Viewport{
					X:      rect.X,
					Y:      rect.Y,
					Width:  rect.W + 2,
					Height: rect.H + 20,
					Scale:  s.scale,
				}).
				Do(ctx)
			return err
		}),
	)
	if err != nil || len(buf) == 0 {
		return &SnapshotResult{Success: false, Err: fmt.Errorf("all capture tiers failed: %v", err)}
	}
	return &SnapshotResult{Success: true, PNG: buf}
}

// isBlank reports whether the encoded PNG is implausibly small or its center
// pixel is fully opaque near-white.
func (s *SnapshotService) isBlank(data []byte) bool {
	if len(data) < minPlausiblePNG {
		return true
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		// Undecodable output from the renderer; let the next tier try.
		return true
	}
	b := img.Bounds()
	r, g, bl, a := img.At(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2).RGBA()
	r8, g8, b8, a8 := r>>8, g>>8, bl>>8, a>>8
	return a8 == 255 && r8 > 250 && g8 > 250 && b8 > 250
}

// PDFFromPNG wraps a raster image in a single-page PDF sized exactly to the
// image's pixel dimensions, placing the image at full size.
func (s *SnapshotService) PDFFromPNG(data []byte) ([]byte, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image dimensions: %w", err)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: float64(cfg.Width), Ht: float64(cfg.Height)},
	})
	pdf.AddPage()
	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("card", opt, bytes.NewReader(data))
	pdf.ImageOptions("card", 0, 0, float64(cfg.Width), float64(cfg.Height), false, opt, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PDF: %w", err)
	}
	return buf.Bytes(), nil
}

var dataURLRegex = regexp.MustCompile(`^data:(.*?);base64$`)

// DataURLToBytes decodes a base64 data URL into raw bytes and its MIME type.
// Malformed input yields (nil, "") rather than an error.
func DataURLToBytes(dataURL string) ([]byte, string) {
	parts := strings.SplitN(dataURL, ",", 2)
	if len(parts) != 2 {
		return nil, ""
	}
	m := dataURLRegex.FindStringSubmatch(parts[0])
	if m == nil {
		return nil, ""
	}
	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ""
	}
	return raw, m[1]
}

// PNGDataURL encodes a PNG as a data URL for storage alongside history entries.
func PNGDataURL(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}
