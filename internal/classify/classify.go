// Package classify maps raw input-device events to semantic categories and
// stable identifier names. The same rules run on the agent and the server so
// that server-side re-derivation always matches client intent.
package classify

import (
	"fmt"
	"math"
	"strings"
)

// Category is the semantic class of an input event.
type Category string

const (
	CategoryKey   Category = "KEY"
	CategoryClick Category = "CLICK"
	CategoryWheel Category = "WHEEL"
	CategoryOther Category = "OTHER"
)

// Wheel axis identifiers. Both contribute to the wheel total.
const (
	WheelVertical   = "WHEEL_VERTICAL"
	WheelHorizontal = "WHEEL_HORIZONTAL"
)

// notchSize is the continuous scroll delta that corresponds to one discrete
// wheel notch.
const notchSize = 15.0

// Classify returns the category for an event identifier. It is a pure
// function of the identifier prefix and never fails: anything that is not a
// KEY_, CLICK_ or WHEEL_ name is OTHER.
func Classify(name string) Category {
	switch {
	case strings.HasPrefix(name, "KEY_"):
		return CategoryKey
	case strings.HasPrefix(name, "CLICK_"):
		return CategoryClick
	case strings.HasPrefix(name, "WHEEL_"):
		return CategoryWheel
	default:
		return CategoryOther
	}
}

// WheelNotches converts a continuous scroll delta into a discrete notch
// count: absolute value, divided by the notch size, rounded to nearest.
func WheelNotches(delta float64) uint64 {
	return uint64(math.Round(math.Abs(delta / notchSize)))
}

// Linux BTN_* codes for pointer buttons.
const (
	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
)

// ButtonName maps a pointer button code to its click identifier. Unmapped
// buttons become CLICK_OTHER rather than an error.
func ButtonName(code uint32) string {
	switch code {
	case btnLeft:
		return "CLICK_LEFT"
	case btnRight:
		return "CLICK_RIGHT"
	case btnMiddle:
		return "CLICK_MIDDLE"
	default:
		return "CLICK_OTHER"
	}
}

// keyNames maps Linux input-event keycodes to their canonical KEY_* names.
// Covers the keys a desktop keyboard actually produces; anything else falls
// through to an opaque name in KeyName.
var keyNames = map[uint32]string{
	1:   "KEY_ESC",
	2:   "KEY_1",
	3:   "KEY_2",
	4:   "KEY_3",
	5:   "KEY_4",
	6:   "KEY_5",
	7:   "KEY_6",
	8:   "KEY_7",
	9:   "KEY_8",
	10:  "KEY_9",
	11:  "KEY_0",
	12:  "KEY_MINUS",
	13:  "KEY_EQUAL",
	14:  "KEY_BACKSPACE",
	15:  "KEY_TAB",
	16:  "KEY_Q",
	17:  "KEY_W",
	18:  "KEY_E",
	19:  "KEY_R",
	20:  "KEY_T",
	21:  "KEY_Y",
	22:  "KEY_U",
	23:  "KEY_I",
	24:  "KEY_O",
	25:  "KEY_P",
	26:  "KEY_LEFTBRACE",
	27:  "KEY_RIGHTBRACE",
	28:  "KEY_ENTER",
	29:  "KEY_LEFTCTRL",
	30:  "KEY_A",
	31:  "KEY_S",
	32:  "KEY_D",
	33:  "KEY_F",
	34:  "KEY_G",
	35:  "KEY_H",
	36:  "KEY_J",
	37:  "KEY_K",
	38:  "KEY_L",
	39:  "KEY_SEMICOLON",
	40:  "KEY_APOSTROPHE",
	41:  "KEY_GRAVE",
	42:  "KEY_LEFTSHIFT",
	43:  "KEY_BACKSLASH",
	44:  "KEY_Z",
	45:  "KEY_X",
	46:  "KEY_C",
	47:  "KEY_V",
	48:  "KEY_B",
	49:  "KEY_N",
	50:  "KEY_M",
	51:  "KEY_COMMA",
	52:  "KEY_DOT",
	53:  "KEY_SLASH",
	54:  "KEY_RIGHTSHIFT",
	55:  "KEY_KPASTERISK",
	56:  "KEY_LEFTALT",
	57:  "KEY_SPACE",
	58:  "KEY_CAPSLOCK",
	59:  "KEY_F1",
	60:  "KEY_F2",
	61:  "KEY_F3",
	62:  "KEY_F4",
	63:  "KEY_F5",
	64:  "KEY_F6",
	65:  "KEY_F7",
	66:  "KEY_F8",
	67:  "KEY_F9",
	68:  "KEY_F10",
	87:  "KEY_F11",
	88:  "KEY_F12",
	96:  "KEY_KPENTER",
	97:  "KEY_RIGHTCTRL",
	100: "KEY_RIGHTALT",
	102: "KEY_HOME",
	103: "KEY_UP",
	104: "KEY_PAGEUP",
	105: "KEY_LEFT",
	106: "KEY_RIGHT",
	107: "KEY_END",
	108: "KEY_DOWN",
	109: "KEY_PAGEDOWN",
	110: "KEY_INSERT",
	111: "KEY_DELETE",
	119: "KEY_PAUSE",
	125: "KEY_LEFTMETA",
	126: "KEY_RIGHTMETA",
	127: "KEY_COMPOSE",
}

// KeyName maps a keyboard keycode to its canonical KEY_* name. Unknown
// codes get an opaque KEY_CODE_<n> name so they still classify as keys;
// classification never errors.
func KeyName(code uint32) string {
	if name, ok := keyNames[code]; ok {
		return name
	}
	return fmt.Sprintf("KEY_CODE_%d", code)
}
