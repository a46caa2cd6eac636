package evmap

import (
	evdev "github.com/holoplot/go-evdev"
)

// keyUsages maps EV_KEY codes to keyboard-page (0x07) usage IDs, inverted
// from drivers/hid/hid-input.c hid_keyboard[].
var keyUsages = map[evdev.EvCode]uint16{
	// Letters
	evdev.KEY_A: 0x04,
	evdev.KEY_B: 0x05,
	evdev.KEY_C: 0x06,
	evdev.KEY_D: 0x07,
	evdev.KEY_E: 0x08,
	evdev.KEY_F: 0x09,
	evdev.KEY_G: 0x0A,
	evdev.KEY_H: 0x0B,
	evdev.KEY_I: 0x0C,
	evdev.KEY_J: 0x0D,
	evdev.KEY_K: 0x0E,
	evdev.KEY_L: 0x0F,
	evdev.KEY_M: 0x10,
	evdev.KEY_N: 0x11,
	evdev.KEY_O: 0x12,
	evdev.KEY_P: 0x13,
	evdev.KEY_Q: 0x14,
	evdev.KEY_R: 0x15,
	evdev.KEY_S: 0x16,
	evdev.KEY_T: 0x17,
	evdev.KEY_U: 0x18,
	evdev.KEY_V: 0x19,
	evdev.KEY_W: 0x1A,
	evdev.KEY_X: 0x1B,
	evdev.KEY_Y: 0x1C,
	evdev.KEY_Z: 0x1D,
	// Digits
	evdev.KEY_1: 0x1E,
	evdev.KEY_2: 0x1F,
	evdev.KEY_3: 0x20,
	evdev.KEY_4: 0x21,
	evdev.KEY_5: 0x22,
	evdev.KEY_6: 0x23,
	evdev.KEY_7: 0x24,
	evdev.KEY_8: 0x25,
	evdev.KEY_9: 0x26,
	evdev.KEY_0: 0x27,
	// Control and punctuation
	evdev.KEY_ENTER:      0x28,
	evdev.KEY_ESC:        0x29,
	evdev.KEY_BACKSPACE:  0x2A,
	evdev.KEY_TAB:        0x2B,
	evdev.KEY_SPACE:      0x2C,
	evdev.KEY_MINUS:      0x2D,
	evdev.KEY_EQUAL:      0x2E,
	evdev.KEY_LEFTBRACE:  0x2F,
	evdev.KEY_RIGHTBRACE: 0x30,
	evdev.KEY_BACKSLASH:  0x31,
	evdev.KEY_SEMICOLON:  0x33,
	evdev.KEY_APOSTROPHE: 0x34,
	evdev.KEY_GRAVE:      0x35,
	evdev.KEY_COMMA:      0x36,
	evdev.KEY_DOT:        0x37,
	evdev.KEY_SLASH:      0x38,
	evdev.KEY_CAPSLOCK:   0x39,
	// Function keys
	evdev.KEY_F1:  0x3A,
	evdev.KEY_F2:  0x3B,
	evdev.KEY_F3:  0x3C,
	evdev.KEY_F4:  0x3D,
	evdev.KEY_F5:  0x3E,
	evdev.KEY_F6:  0x3F,
	evdev.KEY_F7:  0x40,
	evdev.KEY_F8:  0x41,
	evdev.KEY_F9:  0x42,
	evdev.KEY_F10: 0x43,
	evdev.KEY_F11: 0x44,
	evdev.KEY_F12: 0x45,
	// Navigation cluster
	evdev.KEY_SYSRQ:      0x46,
	evdev.KEY_SCROLLLOCK: 0x47,
	evdev.KEY_PAUSE:      0x48,
	evdev.KEY_INSERT:     0x49,
	evdev.KEY_HOME:       0x4A,
	evdev.KEY_PAGEUP:     0x4B,
	evdev.KEY_DELETE:     0x4C,
	evdev.KEY_END:        0x4D,
	evdev.KEY_PAGEDOWN:   0x4E,
	evdev.KEY_RIGHT:      0x4F,
	evdev.KEY_LEFT:       0x50,
	evdev.KEY_DOWN:       0x51,
	evdev.KEY_UP:         0x52,
	// Keypad
	evdev.KEY_NUMLOCK:    0x53,
	evdev.KEY_KPSLASH:    0x54,
	evdev.KEY_KPASTERISK: 0x55,
	evdev.KEY_KPMINUS:    0x56,
	evdev.KEY_KPPLUS:     0x57,
	evdev.KEY_KPENTER:    0x58,
	evdev.KEY_KP1:        0x59,
	evdev.KEY_KP2:        0x5A,
	evdev.KEY_KP3:        0x5B,
	evdev.KEY_KP4:        0x5C,
	evdev.KEY_KP5:        0x5D,
	evdev.KEY_KP6:        0x5E,
	evdev.KEY_KP7:        0x5F,
	evdev.KEY_KP8:        0x60,
	evdev.KEY_KP9:        0x61,
	evdev.KEY_KP0:        0x62,
	evdev.KEY_KPDOT:      0x63,
	evdev.KEY_102ND:      0x64,
	evdev.KEY_COMPOSE:    0x65,
	evdev.KEY_KPEQUAL:    0x67,
	evdev.KEY_KPCOMMA:    0x85,
	// Extended function keys
	evdev.KEY_F13: 0x68,
	evdev.KEY_F14: 0x69,
	evdev.KEY_F15: 0x6A,
	evdev.KEY_F16: 0x6B,
	evdev.KEY_F17: 0x6C,
	evdev.KEY_F18: 0x6D,
	evdev.KEY_F19: 0x6E,
	evdev.KEY_F20: 0x6F,
	evdev.KEY_F21: 0x70,
	evdev.KEY_F22: 0x71,
	evdev.KEY_F23: 0x72,
	evdev.KEY_F24: 0x73,
	// International
	evdev.KEY_RO:               0x87,
	evdev.KEY_KATAKANAHIRAGANA: 0x88,
	evdev.KEY_YEN:              0x89,
	evdev.KEY_HENKAN:           0x8A,
	evdev.KEY_MUHENKAN:         0x8B,
	evdev.KEY_HANGEUL:          0x90,
	evdev.KEY_HANJA:            0x91,
	evdev.KEY_KATAKANA:         0x92,
	evdev.KEY_HIRAGANA:         0x93,
	// Modifiers: 0xE0..0xE7, one bit per usage in the report's first byte.
	evdev.KEY_LEFTCTRL:   0xE0,
	evdev.KEY_LEFTSHIFT:  0xE1,
	evdev.KEY_LEFTALT:    0xE2,
	evdev.KEY_LEFTMETA:   0xE3,
	evdev.KEY_RIGHTCTRL:  0xE4,
	evdev.KEY_RIGHTSHIFT: 0xE5,
	evdev.KEY_RIGHTALT:   0xE6,
	evdev.KEY_RIGHTMETA:  0xE7,
}
