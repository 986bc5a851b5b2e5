package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nbenliogludev/bdd-browser-agent/internal/config"
)

// MouseButton names a pointer button.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Size is a viewport size in CSS pixels.
type Size struct {
	Width  int
	Height int
}

// DefaultViewport is used when a page cannot report its viewport.
var DefaultViewport = Size{Width: 1280, Height: 720}

// Page is the slice of a browser driver the step tools need. Key names follow
// the Playwright convention ("Control", "Enter", "ArrowUp", "a").
type Page interface {
	// Viewport reports the emulated viewport, ok=false when unknown.
	Viewport() (size Size, ok bool)
	Screenshot(ctx context.Context) ([]byte, error)

	MouseMove(ctx context.Context, x, y float64) error
	MouseDown(ctx context.Context) error
	MouseUp(ctx context.Context) error
	Click(ctx context.Context, x, y float64, button MouseButton) error
	DoubleClick(ctx context.Context, x, y float64) error

	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	KeyPress(ctx context.Context, key string) error
	TypeText(ctx context.Context, text string) error

	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	// Content returns the serialized current DOM.
	Content(ctx context.Context) (string, error)
	// Query returns every element matching a CSS selector in document order.
	// No match is an empty slice, not an error.
	Query(ctx context.Context, selector string) ([]Element, error)

	Close() error
}

// Element is a handle to one DOM element returned by Page.Query.
type Element interface {
	TagName(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present at all.
	Attribute(ctx context.Context, name string) (string, bool, error)
	InnerText(ctx context.Context) (string, error)
	Fill(ctx context.Context, value string) error
	Click(ctx context.Context) error
}

// Session owns a running browser and hands out isolated pages.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Open starts the browser backend named in cfg.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Session, error) {
	switch cfg.Backend {
	case config.BackendPlaywright, "":
		return NewManager(cfg, logger)
	case config.BackendChromedp:
		return NewCDPManager(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown browser backend %q", cfg.Backend)
	}
}

func viewportFromConfig(cfg config.BrowserConfig) Size {
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		return DefaultViewport
	}
	return Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}
}
