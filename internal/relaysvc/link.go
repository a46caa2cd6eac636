package relaysvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holoplot/go-evdev"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/hidrelay/hidrelay/internal/gadget"
	"github.com/hidrelay/hidrelay/pkg/evmap"
	"github.com/hidrelay/hidrelay/pkg/hidrep"
)

// LinkState is the lifecycle state of a device link.
type LinkState int32

const (
	StateDiscovering LinkState = iota
	StateConnected
	StateRelaying
	StateLost
	StateReconnecting
	StateTerminated
)

func (s LinkState) String() string {
	switch s {
	case StateDiscovering:
		return "discovering"
	case StateConnected:
		return "connected"
	case StateRelaying:
		return "relaying"
	case StateLost:
		return "lost"
	case StateReconnecting:
		return "reconnecting"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// LinkStatus is a point-in-time snapshot of one link.
type LinkStatus struct {
	Identifier string `json:"identifier"`
	State      string `json:"state"`
	Path       string `json:"path,omitempty"`
	Name       string `json:"name,omitempty"`
}

type linkConfig struct {
	identifier Identifier
	grab       bool
	backoffMin time.Duration
	backoffMax time.Duration
}

// Link binds one identifier to at most one opened source at a time and
// relays its events until shutdown or an unrecoverable sink failure. A lost
// device does not terminate the link: it reconnects against the original
// identifier, so the device may come back under a different node path.
type Link struct {
	log      *zap.Logger
	provider SourceProvider
	sinks    SinkRegistry
	claims   *claimTable
	cfg      linkConfig

	asm   *hidrep.Assembler
	state *atomic.Int32

	mu    sync.Mutex
	bound SourceInfo
}

func newLink(log *zap.Logger, provider SourceProvider, sinks SinkRegistry, claims *claimTable, cfg linkConfig) *Link {
	return &Link{
		log:      log.With(zap.String("identifier", cfg.identifier.Value)),
		provider: provider,
		sinks:    sinks,
		claims:   claims,
		cfg:      cfg,
		asm:      hidrep.NewAssembler(),
		state:    atomic.NewInt32(int32(StateDiscovering)),
	}
}

func (l *Link) State() LinkState {
	return LinkState(l.state.Load())
}

func (l *Link) Status() LinkStatus {
	l.mu.Lock()
	bound := l.bound
	l.mu.Unlock()
	return LinkStatus{
		Identifier: l.cfg.identifier.Value,
		State:      l.State().String(),
		Path:       bound.Path,
		Name:       bound.Name,
	}
}

func (l *Link) setState(s LinkState) {
	prev := LinkState(l.state.Swap(int32(s)))
	if prev != s {
		l.log.Debug("Link state changed", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

func (l *Link) setBound(info SourceInfo) {
	l.mu.Lock()
	l.bound = info
	l.mu.Unlock()
}

// Run drives the link until ctx is cancelled or the output sink fails.
// Repeated connect failures never abandon the link; it backs off and keeps
// retrying the identifier.
func (l *Link) Run(ctx context.Context) {
	defer l.setState(StateTerminated)
	backoff := l.cfg.backoffMin
	for {
		src, err := l.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Debug("No available source", zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			if backoff *= 2; backoff > l.cfg.backoffMax {
				backoff = l.cfg.backoffMax
			}
			continue
		}
		backoff = l.cfg.backoffMin

		err = l.relay(ctx, src)

		info := src.Info()
		src.Close()
		l.claims.release(info.Path, l)
		l.setBound(SourceInfo{})

		switch {
		case ctx.Err() != nil:
			l.releaseAll()
			return
		case errors.Is(err, gadget.ErrSinkUnavailable):
			l.log.Error("Output sink failed, terminating link", zap.Error(err))
			l.releaseAll()
			return
		default:
			l.setState(StateLost)
			l.log.Info("Source disconnected",
				zap.String("path", info.Path),
				zap.String("name", info.Name),
			)
			l.releaseAll()
			l.setState(StateReconnecting)
		}
	}
}

// connect scans the current sources, claims the first one the identifier
// selects and opens it. Sources claimed by other links and our own virtual
// devices are skipped.
func (l *Link) connect(ctx context.Context) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := l.provider.List()
	if err != nil {
		return nil, fmt.Errorf("enumerate sources: %w", err)
	}
	for _, info := range infos {
		if !l.cfg.identifier.Matches(info) || l.isVirtual(info) {
			continue
		}
		if !l.claims.claim(info.Path, l) {
			continue
		}
		src, err := l.provider.Open(info.Path, l.cfg.grab)
		if err != nil {
			l.claims.release(info.Path, l)
			l.log.Debug("Failed to open source", zap.String("path", info.Path), zap.Error(err))
			continue
		}
		l.setBound(src.Info())
		l.setState(StateConnected)
		l.log.Info("Source connected", zap.String("path", info.Path), zap.String("name", info.Name))
		return src, nil
	}
	return nil, fmt.Errorf("no available source matches %s", l.cfg.identifier)
}

func (l *Link) isVirtual(info SourceInfo) bool {
	for _, name := range l.sinks.VirtualDeviceNames() {
		if info.Name == name {
			return true
		}
	}
	return false
}

// relay pumps events from the source into the assembler and flushes reports
// on sync boundaries. Transient read errors are logged and skipped; only
// device loss, sink failure and cancellation end the loop.
func (l *Link) relay(ctx context.Context, src Source) error {
	l.setState(StateRelaying)
	for {
		ev, err := src.ReadEvent(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, ErrDeviceGone):
				return err
			default:
				l.log.Warn("Transient read error", zap.Error(err))
				continue
			}
		}
		if err := l.handle(ev); err != nil {
			return err
		}
	}
}

func (l *Link) handle(ev Event) error {
	switch ev.Kind {
	case EventKey:
		// Autorepeat stays local: the host synthesizes its own repeats
		// from the held state.
		if ev.Value == 2 {
			return nil
		}
		l.handleKey(ev)
	case EventRel:
		if dx, dy, wheel, ok := evmap.RelDelta(evdev.EvCode(ev.Code), ev.Value); ok {
			l.asm.Move(dx, dy, wheel)
		}
	case EventSync:
		return l.flush(l.asm.Flush())
	}
	return nil
}

func (l *Link) handleKey(ev Event) {
	tr := evmap.TranslateKey(evdev.EvCode(ev.Code))
	down := ev.Value != 0
	switch tr.Class {
	case evmap.ClassKey:
		if !down {
			l.asm.KeyUp(tr.Usage)
			return
		}
		if err := l.asm.KeyDown(tr.Usage); err != nil {
			l.log.Warn("Dropping key press", zap.Uint16("usage", tr.Usage), zap.Error(err))
		}
	case evmap.ClassConsumer:
		if down {
			l.asm.ConsumerDown(tr.Usage)
		} else {
			l.asm.ConsumerUp(tr.Usage)
		}
	case evmap.ClassButton:
		if down {
			l.asm.ButtonDown(uint8(tr.Usage))
		} else {
			l.asm.ButtonUp(uint8(tr.Usage))
		}
	default:
		l.log.Debug("Unmapped key code", zap.Uint16("code", ev.Code), zap.Int32("value", ev.Value))
	}
}

func (l *Link) flush(reports []hidrep.Report) error {
	for _, rep := range reports {
		if err := l.sinks.Write(rep.Kind, rep.Data); err != nil {
			if errors.Is(err, gadget.ErrNoSink) {
				l.log.Debug("No sink configured for report", zap.Stringer("kind", rep.Kind))
				continue
			}
			return err
		}
	}
	return nil
}

// releaseAll emits empty reports for every sink the link has touched so the
// host never sees keys or buttons stuck down across a disconnect. Best
// effort: a failing sink is logged and skipped.
func (l *Link) releaseAll() {
	for _, rep := range l.asm.ReleaseAll() {
		if err := l.sinks.Write(rep.Kind, rep.Data); err != nil && !errors.Is(err, gadget.ErrNoSink) {
			l.log.Warn("Failed to release held inputs", zap.Stringer("kind", rep.Kind), zap.Error(err))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
