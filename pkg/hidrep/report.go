// Package hidrep assembles translated input events into fixed-size HID
// reports: the boot keyboard report (modifier byte plus 6-key rollover), the
// boot mouse report and a consumer-control report.
package hidrep

import (
	"fmt"
)

// SinkKind identifies one HID gadget endpoint a report is written to.
type SinkKind uint8

const (
	SinkKeyboard SinkKind = iota
	SinkMouse
	SinkConsumer
)

func (k SinkKind) String() string {
	switch k {
	case SinkKeyboard:
		return "keyboard"
	case SinkMouse:
		return "mouse"
	case SinkConsumer:
		return "consumer"
	default:
		return fmt.Sprintf("sink(%d)", uint8(k))
	}
}

// MarshalYAML renders the kind name in CLI output.
func (k SinkKind) MarshalYAML() ([]byte, error) {
	return []byte(k.String()), nil
}

func ParseSinkKind(s string) (SinkKind, error) {
	switch s {
	case "keyboard":
		return SinkKeyboard, nil
	case "mouse":
		return SinkMouse, nil
	case "consumer":
		return SinkConsumer, nil
	}
	return 0, fmt.Errorf("unknown sink kind: %q", s)
}

// Kinds lists every sink kind the assembler can produce reports for.
func Kinds() []SinkKind {
	return []SinkKind{SinkKeyboard, SinkMouse, SinkConsumer}
}

// Report byte layouts expected by a generic USB host HID class driver.
const (
	KeyboardReportSize = 8 // modifier, reserved, 6 key usages
	MouseReportSize    = 4 // button bits, dx, dy, wheel
	ConsumerReportSize = 2 // 16-bit usage, little endian
	KeyRollover        = 6
)

// Report is one assembled HID report bound for a sink.
type Report struct {
	Kind SinkKind
	Data []byte
}
