package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/nbenliogludev/bdd-browser-agent/internal/config"
)

// CDPManager drives Chromium directly over the DevTools protocol.
type CDPManager struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	cfg           config.BrowserConfig
	logger        *zap.Logger
}

// NewCDPManager launches Chromium through chromedp. The browser lives until
// Close or until ctx is cancelled.
func NewCDPManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*CDPManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser.cdp")

	size := viewportFromConfig(cfg)
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(size.Width, size.Height),
	)
	for _, arg := range cfg.Args {
		name, value := parseFlag(arg)
		opts = append(opts, chromedp.Flag(name, value))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Warnf),
	)

	// An empty Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chromium failed: %w", err)
	}

	logger.Info("Browser launched", zap.Bool("headless", cfg.Headless))

	return &CDPManager{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		cfg:           cfg,
		logger:        logger,
	}, nil
}

// NewPage opens a tab in its own browser context.
func (m *CDPManager) NewPage(ctx context.Context) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx, chromedp.WithNewBrowserContext())

	size := viewportFromConfig(m.cfg)
	p := &cdpPage{
		tabCtx:  tabCtx,
		cancel:  tabCancel,
		size:    size,
		timeout: m.cfg.Timeout,
	}

	actions := []chromedp.Action{chromedp.EmulateViewport(int64(size.Width), int64(size.Height))}
	if m.cfg.HighlightCursor {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(CursorHighlightScript).Do(ctx)
			return err
		}))
	}
	if err := p.run(ctx, actions...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return p, nil
}

// Close kills the browser process.
func (m *CDPManager) Close() error {
	m.browserCancel()
	m.allocCancel()
	return nil
}

func parseFlag(arg string) (string, any) {
	arg = strings.TrimLeft(arg, "-")
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}

// cdpPage implements Page on one chromedp tab. Pointer position, the held
// button and held modifiers are tracked here because CDP input events carry
// them explicitly.
type cdpPage struct {
	tabCtx  context.Context
	cancel  context.CancelFunc
	size    Size
	timeout time.Duration

	mouseX, mouseY float64
	held           input.MouseButton
	modifiers      input.Modifier
}

// run executes actions on the tab, bounded by the caller's ctx and the
// configured per-call timeout.
func (p *cdpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	if p.timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, p.timeout)
		defer cancelTimeout()
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (p *cdpPage) Viewport() (Size, bool) {
	return p.size, true
}

func (p *cdpPage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// mouseEvent builds one CDP mouse event. held is the button that is down
// during the event: for a press it is the button being pressed, for a release
// the one being let go. buttons reports the state after the event.
func mouseEvent(typ input.MouseType, x, y float64, held input.MouseButton, mods input.Modifier) *input.DispatchMouseEventParams {
	ev := input.DispatchMouseEvent(typ, x, y).WithModifiers(mods)
	switch typ {
	case input.MousePressed:
		return ev.WithButton(held).WithButtons(buttonMask(held)).WithClickCount(1)
	case input.MouseReleased:
		return ev.WithButton(held).WithButtons(0).WithClickCount(1)
	}
	if held != "" {
		ev = ev.WithButton(held).WithButtons(buttonMask(held))
	}
	return ev
}

func buttonMask(b input.MouseButton) int64 {
	switch b {
	case input.Left:
		return 1
	case input.Right:
		return 2
	case input.Middle:
		return 4
	default:
		return 0
	}
}

func (p *cdpPage) MouseMove(ctx context.Context, x, y float64) error {
	if err := p.run(ctx, mouseEvent(input.MouseMoved, x, y, p.held, p.modifiers)); err != nil {
		return err
	}
	p.mouseX, p.mouseY = x, y
	return nil
}

func (p *cdpPage) MouseDown(ctx context.Context) error {
	if err := p.run(ctx, mouseEvent(input.MousePressed, p.mouseX, p.mouseY, input.Left, p.modifiers)); err != nil {
		return err
	}
	p.held = input.Left
	return nil
}

func (p *cdpPage) MouseUp(ctx context.Context) error {
	if err := p.run(ctx, mouseEvent(input.MouseReleased, p.mouseX, p.mouseY, input.Left, p.modifiers)); err != nil {
		return err
	}
	p.held = ""
	return nil
}

func (p *cdpPage) Click(ctx context.Context, x, y float64, button MouseButton) error {
	if err := p.run(ctx, chromedp.MouseClickXY(x, y, chromedp.ButtonType(cdpButton(button)), chromedp.ButtonModifiers(p.modifiers))); err != nil {
		return err
	}
	p.mouseX, p.mouseY = x, y
	return nil
}

func (p *cdpPage) DoubleClick(ctx context.Context, x, y float64) error {
	if err := p.run(ctx, chromedp.MouseClickXY(x, y, chromedp.ClickCount(2))); err != nil {
		return err
	}
	p.mouseX, p.mouseY = x, y
	return nil
}

func (p *cdpPage) KeyDown(ctx context.Context, key string) error {
	def, err := lookupKey(key)
	if err != nil {
		return err
	}
	typ := input.KeyDown
	text := def.text
	if text == "" || p.modifiers&(input.ModifierCtrl|input.ModifierAlt|input.ModifierMeta) != 0 {
		typ, text = input.KeyRawDown, ""
	}
	ev := input.DispatchKeyEvent(typ).
		WithKey(def.key).
		WithCode(def.code).
		WithWindowsVirtualKeyCode(def.keyCode).
		WithModifiers(p.modifiers)
	if text != "" {
		ev = ev.WithText(text)
	}
	if err := p.run(ctx, ev); err != nil {
		return err
	}
	p.modifiers |= def.modifier
	return nil
}

func (p *cdpPage) KeyUp(ctx context.Context, key string) error {
	def, err := lookupKey(key)
	if err != nil {
		return err
	}
	p.modifiers &^= def.modifier
	return p.run(ctx, input.DispatchKeyEvent(input.KeyUp).
		WithKey(def.key).
		WithCode(def.code).
		WithWindowsVirtualKeyCode(def.keyCode).
		WithModifiers(p.modifiers))
}

// KeyPress accepts combinations like Playwright does: keys are pressed in
// order and released in reverse.
func (p *cdpPage) KeyPress(ctx context.Context, key string) error {
	keys := splitCombo(key)
	for _, k := range keys {
		if _, err := lookupKey(k); err != nil {
			return err
		}
	}

	for i, k := range keys {
		if err := p.KeyDown(ctx, k); err != nil {
			_ = p.releaseKeys(ctx, keys[:i])
			return err
		}
	}
	return p.releaseKeys(ctx, keys)
}

func (p *cdpPage) releaseKeys(ctx context.Context, keys []string) error {
	var first error
	for i := len(keys) - 1; i >= 0; i-- {
		if err := p.KeyUp(ctx, keys[i]); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (p *cdpPage) TypeText(ctx context.Context, text string) error {
	return p.run(ctx, chromedp.KeyEvent(text))
}

func (p *cdpPage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *cdpPage) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (p *cdpPage) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *cdpPage) Query(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &cdpElement{page: p, node: n})
	}
	return elements, nil
}

func (p *cdpPage) Close() error {
	p.cancel()
	return nil
}

type cdpElement struct {
	page *cdpPage
	node *cdp.Node
}

func (e *cdpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *cdpElement) TagName(context.Context) (string, error) {
	return strings.ToLower(e.node.LocalName), nil
}

func (e *cdpElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.node.Attribute(name)
	return v, ok, nil
}

func (e *cdpElement) InnerText(ctx context.Context) (string, error) {
	var text string
	if err := e.page.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

func (e *cdpElement) Fill(ctx context.Context, value string) error {
	return e.page.run(ctx,
		chromedp.Clear(e.ids(), chromedp.ByNodeID),
		chromedp.SendKeys(e.ids(), value, chromedp.ByNodeID),
	)
}

func (e *cdpElement) Click(ctx context.Context) error {
	return e.page.run(ctx, chromedp.MouseClickNode(e.node))
}

func cdpButton(b MouseButton) input.MouseButton {
	switch b {
	case ButtonRight:
		return input.Right
	case ButtonMiddle:
		return input.Middle
	default:
		return input.Left
	}
}
