// Package evsrc provides the Linux evdev implementation of the relay's
// source side: device enumeration, opened event streams and a udev monitor
// for hot-plug notifications.
package evsrc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"

	"github.com/hidrelay/hidrelay/internal/relaysvc"
)

// Backend enumerates and opens /dev/input/event* devices.
type Backend struct {
	log *zap.Logger
}

func NewBackend(log *zap.Logger) *Backend {
	return &Backend{log: log}
}

// List returns every input device node that is currently readable. Nodes
// that cannot be opened (typically missing permissions) are skipped.
func (b *Backend) List() ([]relaysvc.SourceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	infos := make([]relaysvc.SourceInfo, 0, len(paths))
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			b.log.Debug("Skipping unreadable device", zap.String("path", p.Path), zap.Error(err))
			continue
		}
		infos = append(infos, describe(dev, p.Path, p.Name))
		dev.Close()
	}
	return infos, nil
}

func describe(dev *evdev.InputDevice, path, fallbackName string) relaysvc.SourceInfo {
	info := relaysvc.SourceInfo{Path: path, Name: fallbackName}
	if name, err := dev.Name(); err == nil && name != "" {
		info.Name = name
	}
	if uniq, err := dev.UniqueID(); err == nil {
		info.Uniq = uniq
	}
	return info
}

// Open opens the device node and starts its reader. With grab set the device
// is held exclusively, so its events no longer reach the relay host.
func (b *Backend) Open(path string, grab bool) (relaysvc.Source, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if grab {
		if err := dev.Grab(); err != nil {
			dev.Close()
			return nil, fmt.Errorf("grab %s: %w", path, err)
		}
	}
	name, _ := dev.Name()
	src := &source{
		log:     b.log.With(zap.String("path", path)),
		dev:     dev,
		info:    describe(dev, path, name),
		grabbed: grab,
		items:   make(chan item, 64),
		closed:  make(chan struct{}),
	}
	go src.readLoop()
	return src, nil
}

type item struct {
	ev  relaysvc.Event
	err error
}

type source struct {
	log     *zap.Logger
	dev     *evdev.InputDevice
	info    relaysvc.SourceInfo
	grabbed bool

	items  chan item
	closed chan struct{}
}

func (s *source) Info() relaysvc.SourceInfo {
	return s.info
}

// readLoop owns the blocking reads. Events and transient errors are passed
// through in order; a gone device ends the loop after delivering
// ErrDeviceGone.
func (s *source) readLoop() {
	defer close(s.items)
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			if isGone(err) {
				s.send(item{err: fmt.Errorf("%w: %v", relaysvc.ErrDeviceGone, err)})
				return
			}
			if !s.send(item{err: err}) {
				return
			}
			continue
		}
		if !s.send(item{ev: convert(ev)}) {
			return
		}
	}
}

func (s *source) send(it item) bool {
	select {
	case s.items <- it:
		return true
	case <-s.closed:
		return false
	}
}

func isGone(err error) bool {
	return errors.Is(err, syscall.ENODEV) ||
		errors.Is(err, syscall.EBADF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, os.ErrClosed)
}

func convert(ev *evdev.InputEvent) relaysvc.Event {
	out := relaysvc.Event{
		Time:  time.Unix(int64(ev.Time.Sec), int64(ev.Time.Usec)*1000),
		Code:  uint16(ev.Code),
		Value: ev.Value,
	}
	switch ev.Type {
	case evdev.EV_KEY:
		out.Kind = relaysvc.EventKey
	case evdev.EV_REL:
		out.Kind = relaysvc.EventRel
	case evdev.EV_SYN:
		if ev.Code == evdev.SYN_REPORT {
			out.Kind = relaysvc.EventSync
		}
	}
	return out
}

func (s *source) ReadEvent(ctx context.Context) (relaysvc.Event, error) {
	select {
	case <-ctx.Done():
		return relaysvc.Event{}, ctx.Err()
	case it, ok := <-s.items:
		if !ok {
			return relaysvc.Event{}, relaysvc.ErrDeviceGone
		}
		return it.ev, it.err
	}
}

func (s *source) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
		close(s.closed)
	}
	if s.grabbed {
		// Best effort: the node may already be gone.
		s.dev.Ungrab()
	}
	return s.dev.Close()
}
