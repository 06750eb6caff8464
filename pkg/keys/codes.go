package keys

import "fmt"

// Code is a virtual key code as understood by the key injection backend.
// Values follow the Windows virtual-key numbering the pedal box was built against.
type Code uint16

// None means "no key". Lookup never returns it for a known symbol.
const None Code = 0

const (
	Backspace Code = 0x08
	Tab       Code = 0x09
	Enter     Code = 0x0D
	Shift     Code = 0x10
	Control   Code = 0x11
	Alt       Code = 0x12
	Pause     Code = 0x13
	CapsLock  Code = 0x14
	Escape    Code = 0x1B
	Space     Code = 0x20
	PageUp    Code = 0x21
	PageDown  Code = 0x22
	End       Code = 0x23
	Home      Code = 0x24
	Left      Code = 0x25
	Up        Code = 0x26
	Right     Code = 0x27
	Down      Code = 0x28
	Insert    Code = 0x2D
	Delete    Code = 0x2E
)

const (
	Key0 Code = 0x30 + iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
)

const (
	KeyA Code = 0x41 + iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	LeftWin
	RightWin
	Apps
)

const (
	Numpad0 Code = 0x60 + iota
	Numpad1
	Numpad2
	Numpad3
	Numpad4
	Numpad5
	Numpad6
	Numpad7
	Numpad8
	Numpad9
	Multiply
	Add
	Separator
	Subtract
	Decimal
	Divide
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
)

const (
	LeftShift    Code = 0xA0
	RightShift   Code = 0xA1
	LeftControl  Code = 0xA2
	RightControl Code = 0xA3
	LeftAlt      Code = 0xA4
	RightAlt     Code = 0xA5
)

// String returns the key symbol for c, or its hex value when unknown.
func (c Code) String() string {
	if name := Name(c); name != "" {
		return name
	}
	return fmt.Sprintf("0x%02X", uint16(c))
}
