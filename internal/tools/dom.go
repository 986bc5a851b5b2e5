package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nbenliogludev/bdd-browser-agent/internal/browser"
)

// DOM tool names.
const (
	ToolGetAllLinks          = "getAllLinks"
	ToolNavigateTo           = "navigateTo"
	ToolGetStructuredContent = "getStructuredContent"
	ToolGetAllInputs         = "getAllInputs"
	ToolTypeIntoInput        = "typeIntoInput"
	ToolListAllSubmitButtons = "listAllSubmitButtons"
	ToolClickSubmitButton    = "clickSubmitButton"
)

const submitButtonSelector = `button[type="submit"]:not(:disabled), input[type="submit"]:not(:disabled)`

// DOMCall is one parsed DOM tool invocation.
type DOMCall interface {
	domCall()
}

type (
	GetAllLinks          struct{}
	NavigateTo           struct{ Href string }
	GetStructuredContent struct{}
	GetAllInputs         struct{}
	TypeIntoInput        struct{ InputName, Text string }
	ListAllSubmitButtons struct{}
	ClickSubmitButton    struct{ Index int }
)

func (GetAllLinks) domCall()          {}
func (NavigateTo) domCall()           {}
func (GetStructuredContent) domCall() {}
func (GetAllInputs) domCall()         {}
func (TypeIntoInput) domCall()        {}
func (ListAllSubmitButtons) domCall() {}
func (ClickSubmitButton) domCall()    {}

// DOM is the set of selector-addressed tools bound to one page.
type DOM struct {
	page browser.Page
	defs []Definition
}

// NewDOM binds the DOM tools to page.
func NewDOM(page browser.Page) *DOM {
	return &DOM{page: page, defs: domDefinitions()}
}

// Definitions returns the DOM tool entries.
func (d *DOM) Definitions() []Definition {
	return append([]Definition(nil), d.defs...)
}

// ParseDOMCall validates raw against the named tool's schema and decodes it.
func (d *DOM) ParseDOMCall(name string, raw json.RawMessage) (DOMCall, error) {
	var schema *jsonschema.Definition
	for i := range d.defs {
		if d.defs[i].Name == name {
			schema = &d.defs[i].Parameters
		}
	}
	if schema == nil {
		return nil, inputErrorf("Unknown tool %q", name)
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = json.RawMessage("{}")
	}
	var args struct {
		Href      string  `json:"href"`
		InputName string  `json:"inputName"`
		Text      string  `json:"text"`
		Index     float64 `json:"index"`
	}
	if err := checkArguments(name, *schema, raw); err != nil {
		return nil, err
	}
	if err := jsonschema.VerifySchemaAndUnmarshal(*schema, raw, &args); err != nil {
		return nil, inputErrorf("Invalid arguments for %s: %v", name, err)
	}

	switch name {
	case ToolGetAllLinks:
		return GetAllLinks{}, nil
	case ToolNavigateTo:
		return NavigateTo{Href: args.Href}, nil
	case ToolGetStructuredContent:
		return GetStructuredContent{}, nil
	case ToolGetAllInputs:
		return GetAllInputs{}, nil
	case ToolTypeIntoInput:
		return TypeIntoInput{InputName: args.InputName, Text: args.Text}, nil
	case ToolListAllSubmitButtons:
		return ListAllSubmitButtons{}, nil
	case ToolClickSubmitButton:
		if args.Index != math.Trunc(args.Index) {
			return nil, inputErrorf("index must be a whole number, got %v", args.Index)
		}
		return ClickSubmitButton{Index: int(args.Index)}, nil
	}
	return nil, inputErrorf("Unknown tool %q", name)
}

// checkArguments reports the first missing or mistyped argument by name.
func checkArguments(name string, schema jsonschema.Definition, raw json.RawMessage) error {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil || args == nil {
		return inputErrorf("Arguments for %s must be a JSON object", name)
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return inputErrorf("Missing required argument %q for %s", key, name)
		}
	}
	for key, prop := range schema.Properties {
		v, ok := args[key]
		if !ok {
			continue
		}
		switch prop.Type {
		case jsonschema.String:
			if _, ok := v.(string); !ok {
				return inputErrorf("Argument %q for %s must be a string", key, name)
			}
		case jsonschema.Number:
			if _, ok := v.(float64); !ok {
				return inputErrorf("Argument %q for %s must be a number", key, name)
			}
		}
	}
	return nil
}

// Invoke parses and runs one DOM tool call.
func (d *DOM) Invoke(ctx context.Context, name string, raw json.RawMessage) (Result, error) {
	call, err := d.ParseDOMCall(name, raw)
	if err != nil {
		return Result{}, err
	}
	return d.Run(ctx, call)
}

// Run executes a parsed call against the page.
func (d *DOM) Run(ctx context.Context, call DOMCall) (Result, error) {
	switch c := call.(type) {
	case GetAllLinks:
		return d.getAllLinks(ctx)
	case NavigateTo:
		return d.navigateTo(ctx, c.Href)
	case GetStructuredContent:
		return d.getStructuredContent(ctx)
	case GetAllInputs:
		return d.getAllInputs(ctx)
	case TypeIntoInput:
		return d.typeIntoInput(ctx, c.InputName, c.Text)
	case ListAllSubmitButtons:
		return d.listAllSubmitButtons(ctx)
	case ClickSubmitButton:
		return d.clickSubmitButton(ctx, c.Index)
	default:
		return Result{}, inputErrorf("unsupported DOM call %T", call)
	}
}

func (d *DOM) getAllLinks(ctx context.Context) (Result, error) {
	anchors, err := d.page.Query(ctx, "a")
	if err != nil {
		return Result{}, fmt.Errorf("query links: %w", err)
	}
	var hrefs []string
	for _, a := range anchors {
		href, ok, err := a.Attribute(ctx, "href")
		if err != nil {
			return Result{}, fmt.Errorf("read href: %w", err)
		}
		if ok {
			hrefs = append(hrefs, href)
		}
	}
	return TextResult(fmt.Sprintf(
		"Found %d links. Choose one of these links to navigate to using the navigateTo tool:\n%s",
		len(hrefs), strings.Join(hrefs, "\n"))), nil
}

func (d *DOM) navigateTo(ctx context.Context, href string) (Result, error) {
	current, err := d.page.URL(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read current url: %w", err)
	}
	target := normalizeURL(current, href)
	if err := d.page.Navigate(ctx, target); err != nil {
		return Result{}, fmt.Errorf("navigate to %s: %w", target, err)
	}
	return TextResult(fmt.Sprintf("Navigated to %s", target)), nil
}

func (d *DOM) getStructuredContent(ctx context.Context) (Result, error) {
	html, err := d.page.Content(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read page content: %w", err)
	}
	digest, err := StructuredDigest(html)
	if err != nil {
		return Result{}, err
	}
	return TextResult(digest), nil
}

func (d *DOM) getAllInputs(ctx context.Context) (Result, error) {
	inputs, err := d.page.Query(ctx, "input")
	if err != nil {
		return Result{}, fmt.Errorf("query inputs: %w", err)
	}
	var names []string
	for _, in := range inputs {
		name, ok, err := in.Attribute(ctx, "name")
		if err != nil {
			return Result{}, fmt.Errorf("read input name: %w", err)
		}
		if ok && name != "" {
			names = append(names, fmt.Sprintf("name=%q", name))
		}
	}
	return TextResult(fmt.Sprintf(
		"Found %d named inputs. Choose one to type into using the typeIntoInput tool:\n%s",
		len(names), strings.Join(names, "\n"))), nil
}

func (d *DOM) typeIntoInput(ctx context.Context, inputName, text string) (Result, error) {
	matches, err := d.page.Query(ctx, inputSelector(inputName))
	if err != nil {
		return Result{}, fmt.Errorf("query input: %w", err)
	}
	if len(matches) == 0 {
		return Result{}, lookupErrorf("No input with name=%q found on the page", inputName)
	}
	if err := matches[0].Fill(ctx, text); err != nil {
		return Result{}, fmt.Errorf("fill input %q: %w", inputName, err)
	}
	return TextResult(fmt.Sprintf("Typed %q into input with name=%q", text, inputName)), nil
}

func (d *DOM) listAllSubmitButtons(ctx context.Context) (Result, error) {
	buttons, err := d.page.Query(ctx, submitButtonSelector)
	if err != nil {
		return Result{}, fmt.Errorf("query submit buttons: %w", err)
	}
	if len(buttons) == 0 {
		return TextResult("No active (enabled) submit buttons found on the page."), nil
	}

	lines := make([]string, 0, len(buttons))
	for i, b := range buttons {
		label, err := submitLabel(ctx, b)
		if err != nil {
			return Result{}, err
		}
		lines = append(lines, fmt.Sprintf("%d: %s", i, label))
	}
	return TextResult(fmt.Sprintf(
		"Found %d active submit button(s). Use clickSubmitButton to click one by index:\n%s",
		len(buttons), strings.Join(lines, "\n"))), nil
}

func submitLabel(ctx context.Context, el browser.Element) (string, error) {
	tag, err := el.TagName(ctx)
	if err != nil {
		return "", fmt.Errorf("read tag name: %w", err)
	}
	if tag == "button" {
		text, err := el.InnerText(ctx)
		if err != nil {
			return "", fmt.Errorf("read button text: %w", err)
		}
		return fmt.Sprintf("Button: %q", text), nil
	}
	value, _, err := el.Attribute(ctx, "value")
	if err != nil {
		return "", fmt.Errorf("read input value: %w", err)
	}
	return fmt.Sprintf("Input: value=%q", value), nil
}

// clickSubmitButton re-queries the buttons, so an index from an earlier
// listing is only meaningful if the page has not changed since.
func (d *DOM) clickSubmitButton(ctx context.Context, index int) (Result, error) {
	buttons, err := d.page.Query(ctx, submitButtonSelector)
	if err != nil {
		return Result{}, fmt.Errorf("query submit buttons: %w", err)
	}
	if len(buttons) == 0 {
		return Result{}, lookupErrorf("No active submit buttons found on the page.")
	}
	if index < 0 || index >= len(buttons) {
		return Result{}, lookupErrorf("Invalid index. Must be between 0 and %d.", len(buttons)-1)
	}
	if err := buttons[index].Click(ctx); err != nil {
		return Result{}, fmt.Errorf("click submit button %d: %w", index, err)
	}
	return TextResult(fmt.Sprintf("Clicked submit button at index %d.", index)), nil
}

func inputSelector(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name)
	return `input[name="` + escaped + `"]`
}

// normalizeURL resolves target against the page's current URL.
func normalizeURL(currentURL, target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return currentURL
	}

	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	if u.IsAbs() {
		return target
	}

	base, err := url.Parse(currentURL)
	if err != nil || !base.IsAbs() {
		return target
	}

	return base.ResolveReference(u).String()
}

func domDefinitions() []Definition {
	return []Definition{
		{
			Name: ToolGetAllLinks,
			Description: `Lists the href of every anchor (<a>) element on the current page.
This is the primary way to discover navigation targets: call it before navigateTo and pick one of the returned hrefs.`,
			Parameters: emptyObject(),
		},
		{
			Name: ToolNavigateTo,
			Description: `Navigates the browser to a URL or path and waits for the page to load.
Prefer this over clicking links. The href may be absolute ("https://example.com") or relative ("/login"); relative paths resolve against the current page.
Reachability is not checked. After navigation everything previously learned about the DOM is stale: list links, inputs or buttons again.`,
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"href": {Type: jsonschema.String, Description: "Absolute URL or relative path to navigate to."},
				},
				Required: []string{"href"},
			},
		},
		{
			Name: ToolGetStructuredContent,
			Description: `Returns a compact text digest of the current page for checking what content is present and which element holds it.
Each line is the nearest element that directly contains a piece of text, e.g.
<h1>Main Heading</h1>
<p>A paragraph</p>
Scripts and styles are left out. Prefer this tool when verifying text on the page.`,
			Parameters: emptyObject(),
		},
		{
			Name: ToolGetAllInputs,
			Description: `Lists the name attribute of every input element on the current page. Inputs without a name are skipped.
Call it before typeIntoInput; it is the most reliable way to find form fields.`,
			Parameters: emptyObject(),
		},
		{
			Name: ToolTypeIntoInput,
			Description: `Fills the first input whose name attribute equals inputName with text, replacing its current value.
Fails if no such input exists. Use getAllInputs first to learn the available names.`,
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"inputName": {Type: jsonschema.String, Description: "Name attribute of the input to fill."},
					"text":      {Type: jsonschema.String, Description: "Text to put into the input."},
				},
				Required: []string{"inputName", "text"},
			},
		},
		{
			Name: ToolListAllSubmitButtons,
			Description: `Lists every enabled submit control (<button type="submit"> and <input type="submit">) on the current page with a zero-based index and its label.
Use the index with clickSubmitButton.`,
			Parameters: emptyObject(),
		},
		{
			Name: ToolClickSubmitButton,
			Description: `Clicks the enabled submit control at the given zero-based index, as numbered by listAllSubmitButtons.
The list is read again before clicking, so list the buttons again if the page may have changed.`,
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"index": {Type: jsonschema.Number, Description: "Zero-based index of the submit button to click."},
				},
				Required: []string{"index"},
			},
		},
	}
}
