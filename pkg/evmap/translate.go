// Package evmap translates Linux input event codes into USB HID usages.
//
// The tables are the inverse of the kernel's hid-input mapping: every evdev
// key code that a generic HID host can represent maps to either a keyboard
// usage (page 0x07), a consumer usage (page 0x0C) or a pointer button bit.
// The mapping is static and safe for concurrent use without synchronization.
package evmap

import (
	evdev "github.com/holoplot/go-evdev"
)

// Class tags the target report a translated code belongs to.
type Class uint8

const (
	// ClassUnmapped means the code has no HID equivalent. Not an error;
	// callers are expected to ignore it or log at debug level.
	ClassUnmapped Class = iota
	// ClassKey is a keyboard-page usage, including the modifier range
	// 0xE0..0xE7.
	ClassKey
	// ClassConsumer is a consumer-page usage.
	ClassConsumer
	// ClassButton is a pointer button. Usage holds the button bit of the
	// boot mouse report.
	ClassButton
)

func (c Class) String() string {
	switch c {
	case ClassKey:
		return "key"
	case ClassConsumer:
		return "consumer"
	case ClassButton:
		return "button"
	default:
		return "unmapped"
	}
}

// Translation is the result of a key-code lookup.
type Translation struct {
	Class Class
	Usage uint16
}

// TranslateKey maps an EV_KEY code to its HID usage. Total: codes outside
// the tables yield ClassUnmapped. Consumer usages take precedence over
// keyboard usages for codes present in both (e.g. KEY_POWER), matching the
// kernel's routing of multimedia keys.
func TranslateKey(code evdev.EvCode) Translation {
	if usage, ok := consumerUsages[code]; ok {
		return Translation{Class: ClassConsumer, Usage: usage}
	}
	if bit, ok := buttonBits[code]; ok {
		return Translation{Class: ClassButton, Usage: uint16(bit)}
	}
	if usage, ok := keyUsages[code]; ok {
		return Translation{Class: ClassKey, Usage: usage}
	}
	return Translation{Class: ClassUnmapped}
}

// RelDelta classifies an EV_REL code into pointer deltas. Returns ok=false
// for axes the boot mouse report cannot carry (e.g. REL_HWHEEL).
func RelDelta(code evdev.EvCode, value int32) (dx, dy, wheel int32, ok bool) {
	switch code {
	case evdev.REL_X:
		return value, 0, 0, true
	case evdev.REL_Y:
		return 0, value, 0, true
	case evdev.REL_WHEEL:
		return 0, 0, value, true
	default:
		return 0, 0, 0, false
	}
}

// Pointer button bits of the boot mouse report.
const (
	ButtonLeft   uint8 = 1 << 0
	ButtonRight  uint8 = 1 << 1
	ButtonMiddle uint8 = 1 << 2
)

var buttonBits = map[evdev.EvCode]uint8{
	evdev.BTN_LEFT:   ButtonLeft,
	evdev.BTN_RIGHT:  ButtonRight,
	evdev.BTN_MIDDLE: ButtonMiddle,
}
