package hidrep

import (
	"encoding/binary"
	"errors"
)

// ErrCapacityExceeded reports a key press that does not fit the 6-key
// rollover report. The held set keeps the first six keys by press order; the
// next flush still emits a valid report.
var ErrCapacityExceeded = errors.New("keyboard report capacity exceeded")

// Assembler coalesces the events of one sync frame into at most one report
// per affected sink kind. It is owned by a single device link and is not
// safe for concurrent use.
type Assembler struct {
	// keyboard state
	modifiers uint8
	keys      []uint16 // press order, at most KeyRollover

	// mouse state
	buttons       uint8
	dx, dy, wheel int32

	// consumer state
	consumer uint16

	dirty   map[SinkKind]bool
	touched map[SinkKind]bool
}

func NewAssembler() *Assembler {
	return &Assembler{
		keys:    make([]uint16, 0, KeyRollover),
		dirty:   make(map[SinkKind]bool),
		touched: make(map[SinkKind]bool),
	}
}

const (
	modifierBase = 0xE0
	modifierLast = 0xE7
)

// KeyDown records a keyboard-page usage as held. Pressing an already-held
// key is idempotent. A seventh simultaneous regular key returns
// ErrCapacityExceeded and leaves the held set unchanged.
func (a *Assembler) KeyDown(usage uint16) error {
	a.touched[SinkKeyboard] = true
	if usage >= modifierBase && usage <= modifierLast {
		bit := uint8(1) << (usage - modifierBase)
		if a.modifiers&bit == 0 {
			a.modifiers |= bit
			a.dirty[SinkKeyboard] = true
		}
		return nil
	}
	for _, held := range a.keys {
		if held == usage {
			return nil
		}
	}
	if len(a.keys) == KeyRollover {
		return ErrCapacityExceeded
	}
	a.keys = append(a.keys, usage)
	a.dirty[SinkKeyboard] = true
	return nil
}

// KeyUp clears a held usage. Releasing a key that is not held is a no-op.
func (a *Assembler) KeyUp(usage uint16) {
	a.touched[SinkKeyboard] = true
	if usage >= modifierBase && usage <= modifierLast {
		bit := uint8(1) << (usage - modifierBase)
		if a.modifiers&bit != 0 {
			a.modifiers &^= bit
			a.dirty[SinkKeyboard] = true
		}
		return
	}
	for i, held := range a.keys {
		if held == usage {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			a.dirty[SinkKeyboard] = true
			return
		}
	}
}

// ConsumerDown records a consumer-page usage. The consumer report carries a
// single usage at a time; a new press replaces the previous one.
func (a *Assembler) ConsumerDown(usage uint16) {
	a.touched[SinkConsumer] = true
	if a.consumer != usage {
		a.consumer = usage
		a.dirty[SinkConsumer] = true
	}
}

// ConsumerUp clears the consumer usage if it is the one currently held.
func (a *Assembler) ConsumerUp(usage uint16) {
	a.touched[SinkConsumer] = true
	if a.consumer == usage && usage != 0 {
		a.consumer = 0
		a.dirty[SinkConsumer] = true
	}
}

// ButtonDown sets a pointer button bit.
func (a *Assembler) ButtonDown(bit uint8) {
	a.touched[SinkMouse] = true
	if a.buttons&bit == 0 {
		a.buttons |= bit
		a.dirty[SinkMouse] = true
	}
}

// ButtonUp clears a pointer button bit.
func (a *Assembler) ButtonUp(bit uint8) {
	a.touched[SinkMouse] = true
	if a.buttons&bit != 0 {
		a.buttons &^= bit
		a.dirty[SinkMouse] = true
	}
}

// Move accumulates relative pointer deltas within the current sync frame.
func (a *Assembler) Move(dx, dy, wheel int32) {
	a.touched[SinkMouse] = true
	if dx == 0 && dy == 0 && wheel == 0 {
		return
	}
	a.dx += dx
	a.dy += dy
	a.wheel += wheel
	a.dirty[SinkMouse] = true
}

// Flush ends the current sync frame: it returns one report per sink kind
// whose state changed since the previous flush and resets the accumulated
// deltas. A frame that changed nothing yields no reports, so duplicate sync
// markers from flaky sources cost nothing on the wire.
func (a *Assembler) Flush() []Report {
	var reports []Report
	for _, kind := range Kinds() {
		if !a.dirty[kind] {
			continue
		}
		reports = append(reports, Report{Kind: kind, Data: a.encode(kind)})
		a.dirty[kind] = false
	}
	a.dx, a.dy, a.wheel = 0, 0, 0
	return reports
}

// ReleaseAll clears every held key, button and usage and returns the empty
// reports for each sink kind this assembler has ever touched. Used when a
// link loses its source so the host never observes stuck keys.
func (a *Assembler) ReleaseAll() []Report {
	a.modifiers = 0
	a.keys = a.keys[:0]
	a.buttons = 0
	a.consumer = 0
	a.dx, a.dy, a.wheel = 0, 0, 0
	var reports []Report
	for _, kind := range Kinds() {
		if !a.touched[kind] {
			continue
		}
		reports = append(reports, Report{Kind: kind, Data: a.encode(kind)})
		a.dirty[kind] = false
	}
	return reports
}

// HeldKeys returns the held keyboard usages in press order.
func (a *Assembler) HeldKeys() []uint16 {
	out := make([]uint16, len(a.keys))
	copy(out, a.keys)
	return out
}

func (a *Assembler) encode(kind SinkKind) []byte {
	switch kind {
	case SinkKeyboard:
		data := make([]byte, KeyboardReportSize)
		data[0] = a.modifiers
		for i, usage := range a.keys {
			data[2+i] = byte(usage)
		}
		return data
	case SinkMouse:
		data := make([]byte, MouseReportSize)
		data[0] = a.buttons
		data[1] = byte(clampDelta(a.dx))
		data[2] = byte(clampDelta(a.dy))
		data[3] = byte(clampDelta(a.wheel))
		return data
	case SinkConsumer:
		data := make([]byte, ConsumerReportSize)
		binary.LittleEndian.PutUint16(data, a.consumer)
		return data
	}
	return nil
}

// clampDelta bounds an accumulated delta to what an int8 report field can
// carry. -128 is avoided because some boot-protocol hosts treat it as an
// overflow marker.
func clampDelta(v int32) int8 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return int8(v)
}
