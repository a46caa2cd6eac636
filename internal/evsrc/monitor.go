package evsrc

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jochenvg/go-udev"
	"go.uber.org/zap"

	"github.com/hidrelay/hidrelay/internal/relaysvc"
)

// Monitor publishes input subsystem hot-plug events onto the bus so the
// engine can sweep immediately instead of waiting for the next tick.
type Monitor struct {
	log *zap.Logger
	pub relaysvc.HotplugPublisher
}

func NewMonitor(log *zap.Logger, b *relaysvc.HotplugBus) *Monitor {
	return &Monitor{
		log: log,
		pub: b.CreatePublisher("input"),
	}
}

// Start watches the udev netlink socket until ctx is cancelled. When the
// monitor cannot be set up (no netlink access in a container, for instance)
// it logs and returns nil: the engine's periodic sweep still covers
// discovery, just slower.
func (m *Monitor) Start(ctx context.Context) error {
	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")
	if mon == nil {
		m.log.Warn("udev monitor unavailable, falling back to periodic discovery")
		return nil
	}
	if err := mon.FilterAddMatchSubsystem("input"); err != nil {
		m.log.Warn("Failed to filter udev monitor", zap.Error(err))
	}
	ch, err := mon.DeviceChan(ctx)
	if err != nil {
		m.log.Warn("Failed to start udev monitor, falling back to periodic discovery", zap.Error(err))
		return nil
	}
	m.log.Debug("udev hot-plug monitor started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-ch:
			if !ok {
				return nil
			}
			m.handle(ctx, d)
		}
	}
}

func (m *Monitor) handle(ctx context.Context, d *udev.Device) {
	if d == nil {
		return
	}
	node := d.Devnode()
	if !strings.HasPrefix(filepath.Base(node), "event") {
		return
	}
	var action relaysvc.HotplugAction
	switch d.Action() {
	case "add":
		action = relaysvc.HotplugAdd
	case "remove":
		action = relaysvc.HotplugRemove
	default:
		return
	}
	m.log.Debug("Input device hot-plug",
		zap.String("action", d.Action()),
		zap.String("path", node),
	)
	m.pub(ctx, relaysvc.HotplugEvent{Action: action, Path: node})
}
