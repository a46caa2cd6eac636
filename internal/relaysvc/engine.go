package relaysvc

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/hidrelay/hidrelay/pkg/bus"
)

// Criteria selects which input devices the engine relays.
type Criteria struct {
	// Identifiers are device selectors: a node path, a hardware address
	// or a name fragment.
	Identifiers []string
	// AutoDiscover relays every input device instead of matching
	// identifiers.
	AutoDiscover bool
	// Grab takes exclusive hold of matched devices so events stop
	// reaching the relay host itself.
	Grab bool
}

// DeviceRecorder persists sightings of enumerated devices. Optional.
type DeviceRecorder interface {
	Seen(info SourceInfo) error
}

type engineOptions struct {
	sweepInterval time.Duration
	backoffMin    time.Duration
	backoffMax    time.Duration
	graceTimeout  time.Duration
}

type EngineOption func(*engineOptions)

func WithSweepInterval(d time.Duration) EngineOption {
	return func(o *engineOptions) { o.sweepInterval = d }
}

func WithBackoff(min, max time.Duration) EngineOption {
	return func(o *engineOptions) {
		o.backoffMin = min
		o.backoffMax = max
	}
}

func WithGraceTimeout(d time.Duration) EngineOption {
	return func(o *engineOptions) { o.graceTimeout = d }
}

type linkHandle struct {
	link   *Link
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine owns the set of device links. A periodic sweep (nudged by udev
// hot-plug events when available) enumerates sources and creates a link per
// configured identifier, or per discovered device in auto-discover mode.
// Links run independently; one failing device never disturbs the others.
type Engine struct {
	log      *zap.Logger
	provider SourceProvider
	sinks    SinkRegistry
	hotplug  *HotplugBus
	recorder DeviceRecorder
	opts     engineOptions

	links  *xsync.MapOf[string, *linkHandle]
	claims *claimTable

	mu      sync.Mutex
	crit    criteria
	missing map[string]struct{}
}

type criteria struct {
	ids  []Identifier
	auto bool
	grab bool
}

func NewEngine(log *zap.Logger, provider SourceProvider, sinks SinkRegistry, hotplug *HotplugBus, recorder DeviceRecorder, opt ...EngineOption) *Engine {
	opts := engineOptions{
		sweepInterval: 5 * time.Second,
		backoffMin:    500 * time.Millisecond,
		backoffMax:    8 * time.Second,
		graceTimeout:  3 * time.Second,
	}
	for _, o := range opt {
		o(&opts)
	}
	return &Engine{
		log:      log,
		provider: provider,
		sinks:    sinks,
		hotplug:  hotplug,
		recorder: recorder,
		opts:     opts,
		links:    xsync.NewMapOf[string, *linkHandle](),
		claims:   newClaimTable(),
		missing:  make(map[string]struct{}),
	}
}

// SetCriteria replaces the active device selection. Safe to call while the
// engine runs; links for removed identifiers are closed on the next sweep.
func (e *Engine) SetCriteria(c Criteria) {
	ids := make([]Identifier, 0, len(c.Identifiers))
	for _, raw := range c.Identifiers {
		ids = append(ids, ParseIdentifier(raw))
	}
	e.mu.Lock()
	e.crit = criteria{ids: ids, auto: c.AutoDiscover, grab: c.Grab}
	e.missing = make(map[string]struct{})
	e.mu.Unlock()
	e.log.Info("Relay criteria updated",
		zap.Strings("identifiers", c.Identifiers),
		zap.Bool("autoDiscover", c.AutoDiscover),
		zap.Bool("grab", c.Grab),
	)
}

// Start runs discovery sweeps until ctx is cancelled, then shuts the links
// down within the grace timeout.
func (e *Engine) Start(ctx context.Context) error {
	e.log.Info("Relay engine starting", zap.Strings("virtualDevices", e.sinks.VirtualDeviceNames()))
	var hotplugCh <-chan bus.Message[string, HotplugEvent]
	if e.hotplug != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.hotplug.Ready():
		}
		hotplugCh = e.hotplug.Subscribe(ctx)
	}
	ticker := time.NewTicker(e.opts.sweepInterval)
	defer ticker.Stop()
	e.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case <-ticker.C:
			e.sweep(ctx)
		case msg, ok := <-hotplugCh:
			if !ok {
				hotplugCh = nil
				continue
			}
			e.log.Debug("Hot-plug event",
				zap.String("path", msg.Message.Path),
				zap.Uint8("action", uint8(msg.Message.Action)),
			)
			// Removals surface inside the affected link as a read
			// error; only additions warrant an early sweep.
			if msg.Message.Action == HotplugAdd {
				e.sweep(ctx)
			}
		}
	}
}

func (e *Engine) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	infos, err := e.provider.List()
	if err != nil {
		e.log.Error("Failed to enumerate input devices", zap.Error(err))
		return
	}
	if e.recorder != nil {
		for _, info := range infos {
			if e.isVirtual(info) {
				continue
			}
			if err := e.recorder.Seen(info); err != nil {
				e.log.Warn("Failed to record device sighting", zap.String("path", info.Path), zap.Error(err))
			}
		}
	}
	e.mu.Lock()
	crit := e.crit
	e.mu.Unlock()

	e.pruneLinks(crit)

	exclude := func(info SourceInfo) bool {
		return e.claims.claimed(info.Path) || e.isVirtual(info)
	}
	matched, missing := Resolve(crit.ids, crit.auto, infos, exclude)
	for _, id := range missing {
		e.reportMissing(id)
	}
	if crit.auto {
		for _, info := range matched {
			e.ensureLink(ctx, ParseIdentifier(info.Path), crit.grab)
		}
		return
	}
	// Explicit identifiers get a link whether or not the device is
	// present right now; the link resolves and retries on its own.
	for _, id := range crit.ids {
		e.ensureLink(ctx, id, crit.grab)
	}
}

// pruneLinks closes links that no longer correspond to the active criteria.
// Links terminated by a sink failure stay in the table so they remain
// visible in status output and are not respawned into the same failure.
func (e *Engine) pruneLinks(crit criteria) {
	if crit.auto {
		return
	}
	e.links.Range(func(key string, h *linkHandle) bool {
		for _, id := range crit.ids {
			if id.Value == key {
				return true
			}
		}
		e.log.Info("Closing link removed from configuration", zap.String("identifier", key))
		h.cancel()
		e.links.Delete(key)
		return true
	})
}

func (e *Engine) ensureLink(ctx context.Context, id Identifier, grab bool) {
	if _, ok := e.links.Load(id.Value); ok {
		return
	}
	linkCtx, cancel := context.WithCancel(ctx)
	l := newLink(e.log.Named("link"), e.provider, e.sinks, e.claims, linkConfig{
		identifier: id,
		grab:       grab,
		backoffMin: e.opts.backoffMin,
		backoffMax: e.opts.backoffMax,
	})
	h := &linkHandle{link: l, cancel: cancel, done: make(chan struct{})}
	if _, loaded := e.links.LoadOrStore(id.Value, h); loaded {
		cancel()
		return
	}
	e.log.Info("Creating device link", zap.String("identifier", id.Value))
	go func() {
		defer close(h.done)
		l.Run(linkCtx)
	}()
}

func (e *Engine) reportMissing(id Identifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.missing[id.Value]; ok {
		return
	}
	e.missing[id.Value] = struct{}{}
	e.log.Warn("Configured identifier matches no input device", zap.String("identifier", id.Value))
}

func (e *Engine) isVirtual(info SourceInfo) bool {
	for _, name := range e.sinks.VirtualDeviceNames() {
		if info.Name == name {
			return true
		}
	}
	return false
}

func (e *Engine) shutdown() {
	e.log.Info("Relay engine shutting down")
	timer := time.NewTimer(e.opts.graceTimeout)
	defer timer.Stop()
	e.links.Range(func(key string, h *linkHandle) bool {
		h.cancel()
		select {
		case <-h.done:
			return true
		case <-timer.C:
			e.log.Warn("Timed out waiting for links to shut down", zap.String("identifier", key))
			return false
		}
	})
}

// Links returns a snapshot of every link, ordered by identifier.
func (e *Engine) Links() []LinkStatus {
	var out []LinkStatus
	e.links.Range(func(_ string, h *linkHandle) bool {
		out = append(out, h.link.Status())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}
