// Package relaysvc implements the relay engine: discovery and matching of
// input sources, the per-link relay loop with reconnect, and the supervision
// that keeps one failing device from affecting the others.
package relaysvc

import (
	"context"
	"errors"
	"time"

	"github.com/hidrelay/hidrelay/pkg/bus"
	"github.com/hidrelay/hidrelay/pkg/hidrep"
)

// ErrDeviceGone classifies a source read failure as "device disappeared"
// (node removed, radio link lost). It triggers the Lost state rather than
// terminating the link: an absent device is expected and recoverable.
var ErrDeviceGone = errors.New("input device gone")

// EventKind tags a raw input event.
type EventKind uint8

const (
	EventOther EventKind = iota
	EventKey
	EventRel
	EventSync
)

// Event is one raw event read from an input source.
type Event struct {
	Time  time.Time
	Kind  EventKind
	Code  uint16
	Value int32
}

// SourceInfo identifies one input source.
type SourceInfo struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Uniq string `json:"uniq,omitempty"` // hardware address, if the device reports one
}

// Source is one opened input stream, owned exclusively by its link.
type Source interface {
	Info() SourceInfo
	// ReadEvent blocks until an event is available, the device goes away
	// (ErrDeviceGone), a transient read error occurs (any other error) or
	// ctx is cancelled.
	ReadEvent(ctx context.Context) (Event, error)
	Close() error
}

// SourceProvider enumerates and opens input sources. Implemented by the
// evdev backend; tests substitute fakes.
type SourceProvider interface {
	List() ([]SourceInfo, error)
	Open(path string, grab bool) (Source, error)
}

// SinkRegistry is the write side of the relay. Implemented by
// gadget.Registry.
type SinkRegistry interface {
	Write(kind hidrep.SinkKind, report []byte) error
	VirtualDeviceNames() []string
}

// Hot-plug notifications published by the platform backend.
type (
	HotplugAction uint8

	HotplugEvent struct {
		Action HotplugAction
		Path   string
	}

	HotplugBus       = bus.Bus[string, HotplugEvent]
	HotplugPublisher = bus.Publisher[HotplugEvent]
)

const (
	HotplugAdd HotplugAction = iota
	HotplugRemove
)
