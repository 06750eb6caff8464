package keys

import (
	"fmt"
	"strings"
)

// entry ties a user facing key symbol to its virtual key code and X11 keysym.
type entry struct {
	symbol string
	code   Code
	keysym string
}

var (
	bySymbol map[string]entry
	byCode   map[Code]entry

	// denied symbols may be looked up but never bound to a pedal.
	denied = map[Code]bool{
		Shift:        true,
		Control:      true,
		Alt:          true,
		LeftShift:    true,
		RightShift:   true,
		LeftControl:  true,
		RightControl: true,
		LeftAlt:      true,
		RightAlt:     true,
		LeftWin:      true,
		RightWin:     true,
		CapsLock:     true,
		Space:        true,
	}
)

func init() {
	table := []entry{
		{"Backspace", Backspace, "BackSpace"},
		{"Tab", Tab, "Tab"},
		{"Enter", Enter, "Return"},
		{"Shift", Shift, "Shift_L"},
		{"Control", Control, "Control_L"},
		{"Alt", Alt, "Alt_L"},
		{"Pause", Pause, "Pause"},
		{"CapsLock", CapsLock, "Caps_Lock"},
		{"Escape", Escape, "Escape"},
		{"Space", Space, "space"},
		{"PageUp", PageUp, "Prior"},
		{"PageDown", PageDown, "Next"},
		{"End", End, "End"},
		{"Home", Home, "Home"},
		{"Left", Left, "Left"},
		{"Up", Up, "Up"},
		{"Right", Right, "Right"},
		{"Down", Down, "Down"},
		{"Insert", Insert, "Insert"},
		{"Delete", Delete, "Delete"},
		{"LeftWin", LeftWin, "Super_L"},
		{"RightWin", RightWin, "Super_R"},
		{"Apps", Apps, "Menu"},
		{"Multiply", Multiply, "KP_Multiply"},
		{"Add", Add, "KP_Add"},
		{"Separator", Separator, "KP_Separator"},
		{"Subtract", Subtract, "KP_Subtract"},
		{"Decimal", Decimal, "KP_Decimal"},
		{"Divide", Divide, "KP_Divide"},
		{"LeftShift", LeftShift, "Shift_L"},
		{"RightShift", RightShift, "Shift_R"},
		{"LeftCtrl", LeftControl, "Control_L"},
		{"RightCtrl", RightControl, "Control_R"},
		{"LeftAlt", LeftAlt, "Alt_L"},
		{"RightAlt", RightAlt, "Alt_R"},
	}
	for i := 0; i < 10; i++ {
		table = append(table,
			entry{fmt.Sprintf("D%d", i), Key0 + Code(i), fmt.Sprintf("%d", i)},
			entry{fmt.Sprintf("NumPad%d", i), Numpad0 + Code(i), fmt.Sprintf("KP_%d", i)},
		)
	}
	for i := 0; i < 26; i++ {
		letter := string(rune('A' + i))
		table = append(table, entry{letter, KeyA + Code(i), strings.ToLower(letter)})
	}
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("F%d", i+1)
		table = append(table, entry{name, F1 + Code(i), name})
	}

	bySymbol = make(map[string]entry, len(table))
	byCode = make(map[Code]entry, len(table))
	for _, e := range table {
		bySymbol[strings.ToLower(e.symbol)] = e
		if _, ok := byCode[e.code]; !ok {
			byCode[e.code] = e
		}
	}
}

// Lookup translates a key symbol (e.g. "A", "D1", "NumPad6", "F5") into a
// virtual key code. Symbols are matched case-insensitively.
func Lookup(symbol string) (Code, bool) {
	e, ok := bySymbol[strings.ToLower(strings.TrimSpace(symbol))]
	if !ok {
		return None, false
	}
	return e.code, true
}

// IsAllowed reports whether symbol is known and may be bound to a pedal.
// Modifier keys and space are rejected.
func IsAllowed(symbol string) bool {
	code, ok := Lookup(symbol)
	return ok && !denied[code]
}

// Name returns the canonical symbol for c, or "" when c is not in the table.
func Name(c Code) string {
	return byCode[c].symbol
}

// keysym returns the X11 keysym name for c.
func keysym(c Code) (string, bool) {
	e, ok := byCode[c]
	return e.keysym, ok
}
