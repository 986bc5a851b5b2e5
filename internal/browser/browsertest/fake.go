// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nbenliogludev/bdd-browser-agent/internal/browser"
)

// FakePage records every device-level call as a short event string and
// answers DOM queries from a selector-keyed table.
type FakePage struct {
	mu sync.Mutex

	Size       *browser.Size
	CurrentURL string
	HTML       string
	PNG        []byte
	// Nodes maps an exact selector string to the elements it returns.
	Nodes map[string][]*FakeElement
	// Errs makes the named method ("Click", "Navigate", ...) fail.
	Errs map[string]error
	// OnNavigate runs after a successful Navigate, e.g. to swap Nodes.
	OnNavigate func(p *FakePage, url string)

	events []string
	closed bool
}

var _ browser.Page = (*FakePage)(nil)

// NewFakePage returns a page with a 1280x720 viewport on about:blank.
func NewFakePage() *FakePage {
	return &FakePage{
		Size:       &browser.Size{Width: 1280, Height: 720},
		CurrentURL: "about:blank",
		PNG:        []byte("\x89PNG\r\n\x1a\n"),
		Nodes:      map[string][]*FakeElement{},
	}
}

// Events returns a copy of the recorded calls.
func (p *FakePage) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// Closed reports whether Close was called.
func (p *FakePage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *FakePage) record(method, event string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.Errs[method]; err != nil {
		return err
	}
	if event != "" {
		p.events = append(p.events, event)
	}
	return nil
}

func (p *FakePage) Viewport() (browser.Size, bool) {
	if p.Size == nil {
		return browser.Size{}, false
	}
	return *p.Size, true
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := p.record("Screenshot", "screenshot"); err != nil {
		return nil, err
	}
	return p.PNG, nil
}

func (p *FakePage) MouseMove(_ context.Context, x, y float64) error {
	return p.record("MouseMove", fmt.Sprintf("move(%g,%g)", x, y))
}

func (p *FakePage) MouseDown(context.Context) error {
	return p.record("MouseDown", "down")
}

func (p *FakePage) MouseUp(context.Context) error {
	return p.record("MouseUp", "up")
}

func (p *FakePage) Click(_ context.Context, x, y float64, button browser.MouseButton) error {
	return p.record("Click", fmt.Sprintf("click(%s,%g,%g)", button, x, y))
}

func (p *FakePage) DoubleClick(_ context.Context, x, y float64) error {
	return p.record("DoubleClick", fmt.Sprintf("dblclick(%g,%g)", x, y))
}

func (p *FakePage) KeyDown(_ context.Context, key string) error {
	return p.record("KeyDown", fmt.Sprintf("keydown(%s)", key))
}

func (p *FakePage) KeyUp(_ context.Context, key string) error {
	return p.record("KeyUp", fmt.Sprintf("keyup(%s)", key))
}

func (p *FakePage) KeyPress(_ context.Context, key string) error {
	return p.record("KeyPress", fmt.Sprintf("press(%s)", key))
}

func (p *FakePage) TypeText(_ context.Context, text string) error {
	return p.record("TypeText", fmt.Sprintf("type(%s)", text))
}

func (p *FakePage) Navigate(_ context.Context, url string) error {
	if err := p.record("Navigate", fmt.Sprintf("goto(%s)", url)); err != nil {
		return err
	}
	p.mu.Lock()
	p.CurrentURL = url
	hook := p.OnNavigate
	p.mu.Unlock()
	if hook != nil {
		hook(p, url)
	}
	return nil
}

func (p *FakePage) URL(context.Context) (string, error) {
	if err := p.record("URL", ""); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL, nil
}

func (p *FakePage) Content(context.Context) (string, error) {
	if err := p.record("Content", ""); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HTML, nil
}

func (p *FakePage) Query(_ context.Context, selector string) ([]browser.Element, error) {
	if err := p.record("Query", ""); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	found := p.Nodes[selector]
	elements := make([]browser.Element, 0, len(found))
	for _, e := range found {
		e.page = p
		elements = append(elements, e)
	}
	return elements, nil
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// FakeElement is a static element. Fill and Click are recorded on the owning
// page as "fill(<name>=<value>)" and "clickel(<label>)".
type FakeElement struct {
	Tag   string
	Attrs map[string]string
	Text  string
	// Label identifies the element in recorded click events.
	Label string

	page *FakePage
}

var _ browser.Element = (*FakeElement)(nil)

func (e *FakeElement) TagName(context.Context) (string, error) {
	return e.Tag, nil
}

func (e *FakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *FakeElement) InnerText(context.Context) (string, error) {
	return e.Text, nil
}

func (e *FakeElement) Fill(_ context.Context, value string) error {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	name := e.Attrs["name"]
	if err := e.page.record("Fill", fmt.Sprintf("fill(%s=%s)", name, value)); err != nil {
		return err
	}
	e.Attrs["value"] = value
	return nil
}

func (e *FakeElement) Click(context.Context) error {
	return e.page.record("ElementClick", fmt.Sprintf("clickel(%s)", e.Label))
}
