package evmap

import (
	evdev "github.com/holoplot/go-evdev"
)

// consumerUsages maps EV_KEY codes to consumer-page (0x0C) usage IDs,
// inverted from the consumer-page switch in drivers/hid/hid-input.c.
var consumerUsages = map[evdev.EvCode]uint16{
	// Power and system
	evdev.KEY_POWER:   0x030,
	evdev.KEY_RESTART: 0x031,
	evdev.KEY_SLEEP:   0x032,
	evdev.BTN_MISC:    0x036,
	// Menu navigation
	evdev.KEY_MENU:   0x040,
	evdev.KEY_SELECT: 0x041,
	evdev.KEY_INFO:   0x1A1,
	// Broadcast / TV
	evdev.KEY_SUBTITLE:     0x061,
	evdev.KEY_VCR:          0x063,
	evdev.KEY_CAMERA:       0x065,
	evdev.KEY_RED:          0x069,
	evdev.KEY_GREEN:        0x06A,
	evdev.KEY_BLUE:         0x06B,
	evdev.KEY_YELLOW:       0x06C,
	evdev.KEY_ASPECT_RATIO: 0x06D,
	// Display and keyboard backlight
	evdev.KEY_BRIGHTNESSUP:     0x06F,
	evdev.KEY_BRIGHTNESSDOWN:   0x070,
	evdev.KEY_DISPLAYTOGGLE:    0x072,
	evdev.KEY_BRIGHTNESS_MIN:   0x073,
	evdev.KEY_BRIGHTNESS_MAX:   0x074,
	evdev.KEY_BRIGHTNESS_AUTO:  0x075,
	evdev.KEY_BRIGHTNESS_CYCLE: 0x076,
	evdev.KEY_KBDILLUMUP:       0x079,
	evdev.KEY_KBDILLUMDOWN:     0x07A,
	evdev.KEY_KBDILLUMTOGGLE:   0x07C,
	// Media source selection
	evdev.KEY_VIDEO_NEXT: 0x082,
	evdev.KEY_LAST:       0x083,
	evdev.KEY_MEDIA:      0x087,
	evdev.KEY_PC:         0x088,
	evdev.KEY_TV:         0x089,
	evdev.KEY_WWW:        0x08A,
	evdev.KEY_DVD:        0x08B,
	evdev.KEY_PHONE:      0x08C,
	evdev.KEY_PROGRAM:    0x08D,
	evdev.KEY_VIDEOPHONE: 0x08E,
	evdev.KEY_GAMES:      0x08F,
	evdev.KEY_MEMO:       0x090,
	evdev.KEY_CD:         0x091,
	evdev.KEY_TUNER:      0x093,
	evdev.KEY_EXIT:       0x094,
	evdev.KEY_HELP:       0x095,
	evdev.KEY_TAPE:       0x096,
	evdev.KEY_TV2:        0x097,
	evdev.KEY_SAT:        0x098,
	evdev.KEY_PVR:        0x09A,
	// Channel control
	evdev.KEY_CHANNELUP:   0x09C,
	evdev.KEY_CHANNELDOWN: 0x09D,
	evdev.KEY_VCR2:        0x0A0,
	// Transport
	evdev.KEY_PLAY:         0x0B0,
	evdev.KEY_PAUSE:        0x0B1,
	evdev.KEY_RECORD:       0x0B2,
	evdev.KEY_FASTFORWARD:  0x0B3,
	evdev.KEY_REWIND:       0x0B4,
	evdev.KEY_NEXTSONG:     0x0B5,
	evdev.KEY_PREVIOUSSONG: 0x0B6,
	evdev.KEY_STOPCD:       0x0B7,
	evdev.KEY_EJECTCD:      0x0B8,
	evdev.KEY_SHUFFLE:      0x0B9,
	evdev.KEY_MEDIA_REPEAT: 0x0BC,
	evdev.KEY_SLOW:         0x0BF,
	evdev.KEY_PLAYPAUSE:    0x0CD,
	evdev.KEY_VOICECOMMAND: 0x0CF,
	// Audio
	evdev.KEY_MUTE:       0x0E2,
	evdev.KEY_BASSBOOST:  0x0E5,
	evdev.KEY_VOLUMEUP:   0x0E9,
	evdev.KEY_VOLUMEDOWN: 0x0EA,
	// Application launch (AL)
	evdev.KEY_BUTTONCONFIG:   0x181,
	evdev.KEY_BOOKMARKS:      0x182,
	evdev.KEY_CONFIG:         0x183,
	evdev.KEY_WORDPROCESSOR:  0x184,
	evdev.KEY_EDITOR:         0x185,
	evdev.KEY_SPREADSHEET:    0x186,
	evdev.KEY_GRAPHICSEDITOR: 0x187,
	evdev.KEY_PRESENTATION:   0x188,
	evdev.KEY_DATABASE:       0x189,
	evdev.KEY_MAIL:           0x18A,
	evdev.KEY_NEWS:           0x18B,
	evdev.KEY_VOICEMAIL:      0x18C,
	evdev.KEY_ADDRESSBOOK:    0x18D,
	evdev.KEY_CALENDAR:       0x18E,
	evdev.KEY_TASKMANAGER:    0x18F,
	evdev.KEY_JOURNAL:        0x190,
	evdev.KEY_FINANCE:        0x191,
	evdev.KEY_CALC:           0x192,
	evdev.KEY_PLAYER:         0x193,
	evdev.KEY_FILE:           0x194,
	evdev.KEY_CHAT:           0x199,
	evdev.KEY_LOGOFF:         0x19C,
	evdev.KEY_COFFEE:         0x19E,
	evdev.KEY_CONTROLPANEL:   0x19F,
	evdev.KEY_APPSELECT:      0x1A2,
	evdev.KEY_NEXT:           0x1A3,
	evdev.KEY_PREVIOUS:       0x1A4,
	evdev.KEY_DOCUMENTS:      0x1A7,
	evdev.KEY_SPELLCHECK:     0x1AB,
	evdev.KEY_KEYBOARD:       0x1AE,
	evdev.KEY_SCREENSAVER:    0x1B1,
	evdev.KEY_IMAGES:         0x1B6,
	evdev.KEY_AUDIO:          0x1B7,
	evdev.KEY_VIDEO:          0x1B8,
	evdev.KEY_MESSENGER:      0x1BC,
	evdev.KEY_ASSISTANT:      0x1CB,
	// Application control (AC)
	evdev.KEY_NEW:             0x201,
	evdev.KEY_OPEN:            0x202,
	evdev.KEY_CLOSE:           0x203,
	evdev.KEY_SAVE:            0x207,
	evdev.KEY_PRINT:           0x208,
	evdev.KEY_PROPS:           0x209,
	evdev.KEY_UNDO:            0x21A,
	evdev.KEY_COPY:            0x21B,
	evdev.KEY_CUT:             0x21C,
	evdev.KEY_PASTE:           0x21D,
	evdev.KEY_FIND:            0x21F,
	evdev.KEY_SEARCH:          0x221,
	evdev.KEY_GOTO:            0x222,
	evdev.KEY_HOMEPAGE:        0x223,
	evdev.KEY_BACK:            0x224,
	evdev.KEY_FORWARD:         0x225,
	evdev.KEY_STOP:            0x226,
	evdev.KEY_REFRESH:         0x227,
	evdev.KEY_ZOOMIN:          0x22D,
	evdev.KEY_ZOOMOUT:         0x22E,
	evdev.KEY_ZOOMRESET:       0x22F,
	evdev.KEY_ROTATE_DISPLAY:  0x231,
	evdev.KEY_FULL_SCREEN:     0x232,
	evdev.KEY_SCROLLUP:        0x233,
	evdev.KEY_SCROLLDOWN:      0x234,
	evdev.KEY_EDIT:            0x23D,
	evdev.KEY_CANCEL:          0x25F,
	evdev.KEY_REDO:            0x279,
	evdev.KEY_REPLY:           0x289,
	evdev.KEY_FORWARDMAIL:     0x28B,
	evdev.KEY_SEND:            0x28C,
	evdev.KEY_KBD_LAYOUT_NEXT: 0x29D,
	evdev.KEY_SCALE:           0x29F,
	// Keyboard input assist
	evdev.KEY_KBDINPUTASSIST_PREV:      0x2C7,
	evdev.KEY_KBDINPUTASSIST_NEXT:      0x2C8,
	evdev.KEY_KBDINPUTASSIST_PREVGROUP: 0x2C9,
	evdev.KEY_KBDINPUTASSIST_NEXTGROUP: 0x2CA,
	evdev.KEY_KBDINPUTASSIST_ACCEPT:    0x2CB,
	evdev.KEY_KBDINPUTASSIST_CANCEL:    0x2CC,
}
