package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/bdd-browser-agent/internal/browser/browsertest"
)

func loginPage() *browsertest.FakePage {
	page := browsertest.NewFakePage()
	page.CurrentURL = "https://shop.example/login"
	page.Nodes["input"] = []*browsertest.FakeElement{
		{Tag: "input", Attrs: map[string]string{"name": "email", "type": "email"}},
		{Tag: "input", Attrs: map[string]string{"type": "hidden"}},
		{Tag: "input", Attrs: map[string]string{"name": "password", "type": "password"}},
	}
	page.Nodes[`input[name="email"]`] = page.Nodes["input"][:1]
	page.Nodes[`input[name="password"]`] = page.Nodes["input"][2:]
	page.Nodes[submitButtonSelector] = []*browsertest.FakeElement{
		{Tag: "button", Text: "Sign in", Label: "sign-in"},
		{Tag: "input", Attrs: map[string]string{"type": "submit", "value": "Register"}, Label: "register"},
	}
	return page
}

func invokeDOM(t *testing.T, d *DOM, name, args string) (Result, error) {
	t.Helper()
	return d.Invoke(context.Background(), name, json.RawMessage(args))
}

func TestDOM_GetAllInputsOmitsUnnamed(t *testing.T) {
	d := NewDOM(loginPage())

	res, err := invokeDOM(t, d, ToolGetAllInputs, `{}`)
	require.NoError(t, err)
	assert.Equal(t, "Found 2 named inputs. Choose one to type into using the typeIntoInput tool:\nname=\"email\"\nname=\"password\"", res.Text)
}

func TestDOM_TypeIntoInput(t *testing.T) {
	page := loginPage()
	d := NewDOM(page)

	res, err := invokeDOM(t, d, ToolTypeIntoInput, `{"inputName":"email","text":"a@b.com"}`)
	require.NoError(t, err)
	assert.Equal(t, `Typed "a@b.com" into input with name="email"`, res.Text)
	assert.Equal(t, []string{"fill(email=a@b.com)"}, page.Events())
}

func TestDOM_TypeIntoMissingInput(t *testing.T) {
	page := loginPage()
	d := NewDOM(page)

	_, err := invokeDOM(t, d, ToolTypeIntoInput, `{"inputName":"missing","text":"x"}`)
	require.ErrorIs(t, err, ErrLookup)
	assert.Empty(t, page.Events())
}

func TestDOM_ListAllSubmitButtons(t *testing.T) {
	d := NewDOM(loginPage())

	res, err := invokeDOM(t, d, ToolListAllSubmitButtons, ``)
	require.NoError(t, err)
	assert.Equal(t, "Found 2 active submit button(s). Use clickSubmitButton to click one by index:\n0: Button: \"Sign in\"\n1: Input: value=\"Register\"", res.Text)
}

func TestDOM_ListAllSubmitButtonsEmpty(t *testing.T) {
	page := browsertest.NewFakePage()
	d := NewDOM(page)

	res, err := invokeDOM(t, d, ToolListAllSubmitButtons, `{}`)
	require.NoError(t, err)
	assert.Equal(t, "No active (enabled) submit buttons found on the page.", res.Text)
}

func TestDOM_ClickSubmitButton(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantErr error
		msg     string
		events  []string
	}{
		{"first", `{"index":0}`, nil, "Clicked submit button at index 0.", []string{"clickel(sign-in)"}},
		{"second", `{"index":1}`, nil, "Clicked submit button at index 1.", []string{"clickel(register)"}},
		{"beyond", `{"index":2}`, ErrLookup, "Invalid index. Must be between 0 and 1.", nil},
		{"negative", `{"index":-1}`, ErrLookup, "Invalid index. Must be between 0 and 1.", nil},
		{"fractional", `{"index":0.5}`, ErrInputContract, "", nil},
		{"missing", `{}`, ErrInputContract, "", nil},
		{"string", `{"index":"0"}`, ErrInputContract, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := loginPage()
			d := NewDOM(page)

			res, err := invokeDOM(t, d, ToolClickSubmitButton, tt.args)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.msg != "" {
					assert.Equal(t, tt.msg, err.Error())
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.msg, res.Text)
			}
			assert.Equal(t, tt.events, page.Events())
		})
	}
}

func TestDOM_ClickSubmitButtonNoneEnabled(t *testing.T) {
	d := NewDOM(browsertest.NewFakePage())

	_, err := invokeDOM(t, d, ToolClickSubmitButton, `{"index":0}`)
	require.ErrorIs(t, err, ErrLookup)
	assert.Equal(t, "No active submit buttons found on the page.", err.Error())
}

func TestDOM_GetAllLinks(t *testing.T) {
	page := browsertest.NewFakePage()
	page.Nodes["a"] = []*browsertest.FakeElement{
		{Tag: "a", Attrs: map[string]string{"href": "/about"}},
		{Tag: "a", Attrs: map[string]string{"name": "top"}},
		{Tag: "a", Attrs: map[string]string{"href": "https://example.com/"}},
	}
	d := NewDOM(page)

	res, err := invokeDOM(t, d, ToolGetAllLinks, `{}`)
	require.NoError(t, err)
	assert.Equal(t, "Found 2 links. Choose one of these links to navigate to using the navigateTo tool:\n/about\nhttps://example.com/", res.Text)
}

func TestDOM_NavigateTo(t *testing.T) {
	tests := []struct {
		current string
		href    string
		want    string
	}{
		{"https://shop.example/login", "/cart", "https://shop.example/cart"},
		{"https://shop.example/a/b", "c", "https://shop.example/a/c"},
		{"https://shop.example/login", "https://other.example/", "https://other.example/"},
		{"about:blank", "https://example.com", "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			page := browsertest.NewFakePage()
			page.CurrentURL = tt.current
			d := NewDOM(page)

			args, err := json.Marshal(map[string]string{"href": tt.href})
			require.NoError(t, err)
			res, err := d.Invoke(context.Background(), ToolNavigateTo, args)
			require.NoError(t, err)
			assert.Equal(t, "Navigated to "+tt.want, res.Text)
			assert.Equal(t, []string{"goto(" + tt.want + ")"}, page.Events())
		})
	}
}

func TestDOM_NavigateToDriverError(t *testing.T) {
	page := browsertest.NewFakePage()
	page.Errs = map[string]error{"Navigate": errors.New("net::ERR_NAME_NOT_RESOLVED")}
	d := NewDOM(page)

	_, err := invokeDOM(t, d, ToolNavigateTo, `{"href":"https://nowhere.invalid"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
}

func TestDOM_GetStructuredContent(t *testing.T) {
	page := browsertest.NewFakePage()
	page.HTML = `<html><body><div><p>Hello</p></div></body></html>`
	d := NewDOM(page)

	res, err := invokeDOM(t, d, ToolGetStructuredContent, `{}`)
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello</p>\n", res.Text)
}

func TestDOM_ParseRejectsUnknownTool(t *testing.T) {
	d := NewDOM(browsertest.NewFakePage())
	_, err := d.ParseDOMCall("scrollDown", nil)
	require.ErrorIs(t, err, ErrInputContract)
}

func TestInputSelectorEscapes(t *testing.T) {
	assert.Equal(t, `input[name="email"]`, inputSelector("email"))
	assert.Equal(t, `input[name="a\"b\\c"]`, inputSelector(`a"b\c`))
}

func TestDOM_ParseNamesBadArgument(t *testing.T) {
	d := NewDOM(browsertest.NewFakePage())

	tests := []struct {
		tool, args, want string
	}{
		{ToolTypeIntoInput, `{"inputName":"x"}`, `Missing required argument "text" for typeIntoInput`},
		{ToolTypeIntoInput, `{"inputName":"x","text":5}`, `Argument "text" for typeIntoInput must be a string`},
		{ToolNavigateTo, `{}`, `Missing required argument "href" for navigateTo`},
		{ToolClickSubmitButton, `{"index":"0"}`, `Argument "index" for clickSubmitButton must be a number`},
		{ToolClickSubmitButton, `[0]`, `Arguments for clickSubmitButton must be a JSON object`},
	}
	for _, tt := range tests {
		t.Run(tt.tool+tt.args, func(t *testing.T) {
			_, err := d.ParseDOMCall(tt.tool, json.RawMessage(tt.args))
			require.ErrorIs(t, err, ErrInputContract)
			assert.EqualError(t, err, tt.want)
		})
	}
}
