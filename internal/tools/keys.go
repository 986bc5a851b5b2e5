package tools

import "strings"

// keyboardShortcuts maps lower-cased compound key names to the keys held down
// in order and released in reverse.
var keyboardShortcuts = map[string][]string{
	"ctrl+l":     {"Control", "l"},
	"ctrl+a":     {"Control", "a"},
	"ctrl+c":     {"Control", "c"},
	"ctrl+v":     {"Control", "v"},
	"alt+tab":    {"Alt", "Tab"},
	"return":     {"Enter"},
	"enter":      {"Enter"},
	"esc":        {"Escape"},
	"tab":        {"Tab"},
	"delete":     {"Delete"},
	"backspace":  {"Backspace"},
	"space":      {" "},
	"arrowup":    {"ArrowUp"},
	"arrowdown":  {"ArrowDown"},
	"arrowleft":  {"ArrowLeft"},
	"arrowright": {"ArrowRight"},
	"page_down":  {"PageDown"},
	"page_up":    {"PageUp"},
}

// ResolveShortcut returns the key sequence for a shortcut name, ignoring case.
func ResolveShortcut(name string) ([]string, bool) {
	keys, ok := keyboardShortcuts[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), keys...), true
}
