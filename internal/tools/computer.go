package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nbenliogludev/bdd-browser-agent/internal/browser"
)

// ComputerToolName is the manifest name of the pointer/keyboard tool.
const ComputerToolName = "computer"

// Cursor is the remembered pointer position.
type Cursor struct {
	X, Y float64
}

func (c Cursor) String() string {
	return "(" + formatCoord(c.X) + ", " + formatCoord(c.Y) + ")"
}

// PointerAction is one parsed computer tool action.
type PointerAction interface {
	pointerAction()
}

type (
	Screenshot     struct{}
	TypeText       struct{ Text string }
	Click          struct{ Button browser.MouseButton }
	DoubleClick    struct{}
	LeftClickDrag  struct{ Target Cursor }
	MouseMove      struct{ Target Cursor }
	CursorPosition struct{}
	// KeyPress carries either a shortcut name or a literal key.
	KeyPress struct{ Key string }
)

func (Screenshot) pointerAction()     {}
func (TypeText) pointerAction()       {}
func (Click) pointerAction()          {}
func (DoubleClick) pointerAction()    {}
func (LeftClickDrag) pointerAction()  {}
func (MouseMove) pointerAction()      {}
func (CursorPosition) pointerAction() {}
func (KeyPress) pointerAction()       {}

type computerArgs struct {
	Action     string    `json:"action"`
	Coordinate []float64 `json:"coordinate"`
	Text       string    `json:"text"`
}

// ParsePointerAction decodes computer tool arguments. Unrecognised action
// names are key actions whose key is the text argument.
func ParsePointerAction(raw json.RawMessage) (PointerAction, error) {
	var args computerArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, inputErrorf("Invalid computer arguments: %v", err)
		}
	}

	switch args.Action {
	case "screenshot":
		return Screenshot{}, nil
	case "type":
		if args.Text == "" {
			return nil, inputErrorf("Text required for type action")
		}
		return TypeText{Text: args.Text}, nil
	case "left_click":
		return Click{Button: browser.ButtonLeft}, nil
	case "right_click":
		return Click{Button: browser.ButtonRight}, nil
	case "middle_click":
		return Click{Button: browser.ButtonMiddle}, nil
	case "double_click":
		return DoubleClick{}, nil
	case "left_click_drag":
		target, err := requireCoordinate(args.Coordinate, args.Action)
		if err != nil {
			return nil, err
		}
		return LeftClickDrag{Target: target}, nil
	case "mouse_move":
		target, err := requireCoordinate(args.Coordinate, args.Action)
		if err != nil {
			return nil, err
		}
		return MouseMove{Target: target}, nil
	case "cursor_position":
		return CursorPosition{}, nil
	default:
		if args.Text == "" {
			return nil, inputErrorf("Text required for key action")
		}
		return KeyPress{Key: args.Text}, nil
	}
}

func requireCoordinate(coords []float64, action string) (Cursor, error) {
	if len(coords) != 2 {
		return Cursor{}, inputErrorf("Coordinates required for %s action", action)
	}
	return Cursor{X: coords[0], Y: coords[1]}, nil
}

// Step performs one action against page starting from cursor cur and
// returns the observation together with the cursor after the action.
func Step(ctx context.Context, page browser.Page, action PointerAction, cur Cursor) (Result, Cursor, error) {
	switch a := action.(type) {
	case Screenshot:
		png, err := page.Screenshot(ctx)
		if err != nil {
			return Result{}, cur, fmt.Errorf("screenshot failed: %w", err)
		}
		return ImageResult(png), cur, nil

	case TypeText:
		if err := page.TypeText(ctx, a.Text); err != nil {
			return Result{}, cur, err
		}
		return TextResult("Text typed"), cur, nil

	case Click:
		if err := page.Click(ctx, cur.X, cur.Y, a.Button); err != nil {
			return Result{}, cur, err
		}
		return TextResult(clickMessage(a.Button)), cur, nil

	case DoubleClick:
		if err := page.DoubleClick(ctx, cur.X, cur.Y); err != nil {
			return Result{}, cur, err
		}
		return TextResult("Double click performed"), cur, nil

	case LeftClickDrag:
		// The remembered cursor stays where the drag started.
		if err := page.MouseMove(ctx, cur.X, cur.Y); err != nil {
			return Result{}, cur, err
		}
		if err := page.MouseDown(ctx); err != nil {
			return Result{}, cur, err
		}
		if err := page.MouseMove(ctx, a.Target.X, a.Target.Y); err != nil {
			return Result{}, cur, err
		}
		if err := page.MouseUp(ctx); err != nil {
			return Result{}, cur, err
		}
		return TextResult("Left click drag performed"), cur, nil

	case MouseMove:
		if err := page.MouseMove(ctx, a.Target.X, a.Target.Y); err != nil {
			return Result{}, cur, err
		}
		return TextResult("Mouse moved"), a.Target, nil

	case CursorPosition:
		return TextResult(cur.String()), cur, nil

	case KeyPress:
		if err := pressKey(ctx, page, a.Key); err != nil {
			return Result{}, cur, err
		}
		return TextResult("Key pressed"), cur, nil

	default:
		return Result{}, cur, inputErrorf("unsupported pointer action %T", action)
	}
}

func pressKey(ctx context.Context, page browser.Page, key string) error {
	keys, ok := ResolveShortcut(key)
	if !ok {
		return page.KeyPress(ctx, key)
	}
	for _, k := range keys {
		if err := page.KeyDown(ctx, k); err != nil {
			return err
		}
	}
	for i := len(keys) - 1; i >= 0; i-- {
		if err := page.KeyUp(ctx, keys[i]); err != nil {
			return err
		}
	}
	return nil
}

func clickMessage(b browser.MouseButton) string {
	switch b {
	case browser.ButtonRight:
		return "Right click performed"
	case browser.ButtonMiddle:
		return "Middle click performed"
	default:
		return "Left click performed"
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Computer is the pointer/keyboard tool bound to one page for one run.
// It is not safe for concurrent use.
type Computer struct {
	page    browser.Page
	display browser.Size
	cursor  Cursor
}

// NewComputer binds a computer tool to page with the cursor at the origin.
func NewComputer(page browser.Page) *Computer {
	display, ok := page.Viewport()
	if !ok || display.Width <= 0 || display.Height <= 0 {
		display = browser.DefaultViewport
	}
	return &Computer{page: page, display: display}
}

// Display is the virtual display size advertised to the model.
func (c *Computer) Display() browser.Size { return c.display }

// Cursor returns the remembered pointer position.
func (c *Computer) Cursor() Cursor { return c.cursor }

// Invoke parses and performs one computer tool call.
func (c *Computer) Invoke(ctx context.Context, raw json.RawMessage) (Result, error) {
	action, err := ParsePointerAction(raw)
	if err != nil {
		return Result{}, err
	}
	res, next, err := Step(ctx, c.page, action, c.cursor)
	c.cursor = next
	return res, err
}

// Definitions returns the single computer tool entry.
func (c *Computer) Definitions() []Definition {
	return []Definition{{
		Name: ComputerToolName,
		Description: fmt.Sprintf(`Use a mouse and keyboard to interact with the page, and take screenshots.
The display is %dx%d pixels; coordinates are in that space.
* screenshot: capture the current page as an image.
* mouse_move: move the pointer to coordinate [x, y] and remember it.
* left_click, right_click, middle_click, double_click: click where the pointer was last moved. Call mouse_move first.
* left_click_drag: press at the remembered position and drag to coordinate [x, y]. The remembered position does not change.
* cursor_position: report the remembered pointer position.
* type: type text at the current keyboard focus.
* key: press a key or shortcut given in text, e.g. "Return", "ctrl+l", "Tab".`,
			c.display.Width, c.display.Height),
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"action": {
					Type:        jsonschema.String,
					Description: "The action to perform.",
					Enum: []string{
						"key", "type", "mouse_move", "left_click", "left_click_drag",
						"right_click", "middle_click", "double_click", "screenshot", "cursor_position",
					},
				},
				"coordinate": {
					Type:        jsonschema.Array,
					Description: "[x, y] pixel coordinate, required by mouse_move and left_click_drag.",
					Items:       &jsonschema.Definition{Type: jsonschema.Number},
				},
				"text": {
					Type:        jsonschema.String,
					Description: "Text to type, or the key name for the key action.",
				},
			},
			Required: []string{"action"},
		},
	}}
}
