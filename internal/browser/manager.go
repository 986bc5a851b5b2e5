package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/nbenliogludev/bdd-browser-agent/internal/config"
)

// Manager runs a Playwright-driven Chromium and opens one isolated browser
// context per page.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     config.BrowserConfig
	logger  *zap.Logger
}

// NewManager starts the Playwright driver and launches Chromium.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser.playwright")

	if cfg.InstallDriver {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install pw failed: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     cfg.Args,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium failed: %w", err)
	}

	logger.Info("Browser launched", zap.Bool("headless", cfg.Headless), zap.String("version", browser.Version()))

	return &Manager{
		pw:      pw,
		browser: browser,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// NewPage opens a page in a fresh browser context sized to the configured
// viewport, so cookies and storage never leak between runs.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := viewportFromConfig(m.cfg)
	bctx, err := m.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: size.Width, Height: size.Height},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if m.cfg.HighlightCursor {
		if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(CursorHighlightScript)}); err != nil {
			_ = bctx.Close()
			return nil, fmt.Errorf("failed to add cursor highlight: %w", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if m.cfg.Timeout > 0 {
		ms := float64(m.cfg.Timeout.Milliseconds())
		page.SetDefaultTimeout(ms)
		page.SetDefaultNavigationTimeout(ms)
	}

	return &playwrightPage{ctx: bctx, page: page}, nil
}

// Close shuts down the browser and the driver process.
func (m *Manager) Close() error {
	var firstErr error
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			firstErr = fmt.Errorf("close browser: %w", err)
		}
	}
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop pw: %w", err)
		}
	}
	return firstErr
}

// playwrightPage adapts a playwright.Page to Page. Playwright calls are not
// context-aware; ctx is checked before each call and the configured default
// timeout bounds the call itself.
type playwrightPage struct {
	ctx  playwright.BrowserContext
	page playwright.Page
}

func (p *playwrightPage) Viewport() (Size, bool) {
	vs := p.page.ViewportSize()
	if vs == nil {
		return Size{}, false
	}
	return Size{Width: vs.Width, Height: vs.Height}, true
}

func (p *playwrightPage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Screenshot(playwright.PageScreenshotOptions{Type: playwright.ScreenshotTypePng})
}

func (p *playwrightPage) MouseMove(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Mouse().Move(x, y)
}

func (p *playwrightPage) MouseDown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Mouse().Down()
}

func (p *playwrightPage) MouseUp(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Mouse().Up()
}

func (p *playwrightPage) Click(ctx context.Context, x, y float64, button MouseButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Mouse().Click(x, y, playwright.MouseClickOptions{Button: playwrightButton(button)})
}

func (p *playwrightPage) DoubleClick(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Mouse().Dblclick(x, y)
}

func (p *playwrightPage) KeyDown(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Down(key)
}

func (p *playwrightPage) KeyUp(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Up(key)
}

func (p *playwrightPage) KeyPress(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Press(key)
}

func (p *playwrightPage) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Type(text)
}

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad})
	return err
}

func (p *playwrightPage) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.URL(), nil
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *playwrightPage) Query(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locators, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(locators))
	for _, l := range locators {
		elements = append(elements, &playwrightElement{loc: l})
	}
	return elements, nil
}

func (p *playwrightPage) Close() error {
	return p.ctx.Close()
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) TagName(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.loc.Evaluate(`el => el.tagName.toLowerCase()`, nil)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// Attribute evaluates getAttribute in the page because Locator.GetAttribute
// does not distinguish an absent attribute from an empty one.
func (e *playwrightElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := e.loc.Evaluate(`(el, name) => el.getAttribute(name)`, name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (e *playwrightElement) InnerText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.loc.InnerText()
}

func (e *playwrightElement) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Fill(value)
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click()
}

func playwrightButton(b MouseButton) *playwright.MouseButton {
	switch b {
	case ButtonRight:
		return playwright.MouseButtonRight
	case ButtonMiddle:
		return playwright.MouseButtonMiddle
	default:
		return playwright.MouseButtonLeft
	}
}
