package browser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chromedp/cdproto/input"
)

type keyDefinition struct {
	key      string
	code     string
	keyCode  int64
	text     string
	modifier input.Modifier
}

// namedKeys maps Playwright key names to their DOM key, code and Windows
// virtual key code.
var namedKeys = map[string]keyDefinition{
	"Control":    {key: "Control", code: "ControlLeft", keyCode: 17, modifier: input.ModifierCtrl},
	"Alt":        {key: "Alt", code: "AltLeft", keyCode: 18, modifier: input.ModifierAlt},
	"Shift":      {key: "Shift", code: "ShiftLeft", keyCode: 16, modifier: input.ModifierShift},
	"Meta":       {key: "Meta", code: "MetaLeft", keyCode: 91, modifier: input.ModifierMeta},
	"Enter":      {key: "Enter", code: "Enter", keyCode: 13, text: "\r"},
	"Tab":        {key: "Tab", code: "Tab", keyCode: 9},
	"Escape":     {key: "Escape", code: "Escape", keyCode: 27},
	"Backspace":  {key: "Backspace", code: "Backspace", keyCode: 8},
	"Delete":     {key: "Delete", code: "Delete", keyCode: 46},
	" ":          {key: " ", code: "Space", keyCode: 32, text: " "},
	"Space":      {key: " ", code: "Space", keyCode: 32, text: " "},
	"ArrowUp":    {key: "ArrowUp", code: "ArrowUp", keyCode: 38},
	"ArrowDown":  {key: "ArrowDown", code: "ArrowDown", keyCode: 40},
	"ArrowLeft":  {key: "ArrowLeft", code: "ArrowLeft", keyCode: 37},
	"ArrowRight": {key: "ArrowRight", code: "ArrowRight", keyCode: 39},
	"PageUp":     {key: "PageUp", code: "PageUp", keyCode: 33},
	"PageDown":   {key: "PageDown", code: "PageDown", keyCode: 34},
	"Home":       {key: "Home", code: "Home", keyCode: 36},
	"End":        {key: "End", code: "End", keyCode: 35},
	"Insert":     {key: "Insert", code: "Insert", keyCode: 45},
}

func init() {
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("F%d", i)
		namedKeys[name] = keyDefinition{key: name, code: name, keyCode: int64(111 + i)}
	}
}

// splitCombo splits a Playwright key combination such as "Shift+Tab" into
// its keys in press order. A literal plus is written "+" or "Shift++".
func splitCombo(key string) []string {
	if len(key) <= 1 {
		return []string{key}
	}
	parts := strings.Split(key, "+")
	if strings.HasSuffix(key, "++") {
		parts = append(parts[:len(parts)-2], "+")
	}
	return parts
}

// lookupKey resolves a named key or a single printable character.
func lookupKey(key string) (keyDefinition, error) {
	if def, ok := namedKeys[key]; ok {
		return def, nil
	}
	if utf8.RuneCountInString(key) != 1 {
		return keyDefinition{}, fmt.Errorf("unknown key %q", key)
	}

	r, _ := utf8.DecodeRuneInString(key)
	def := keyDefinition{key: key, text: key}
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		upper := unicode.ToUpper(r)
		def.code = "Key" + string(upper)
		def.keyCode = int64(upper)
	case r >= '0' && r <= '9':
		def.code = "Digit" + key
		def.keyCode = int64(r)
	}
	if strings.TrimSpace(key) == "" {
		return keyDefinition{}, fmt.Errorf("unknown key %q", key)
	}
	return def, nil
}
