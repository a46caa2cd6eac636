// Package relay wires the relay services together: configuration, the
// device store, the evdev source side, the output sinks and the engine.
package relay

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/hidrelay/hidrelay/internal/configsvc"
	"github.com/hidrelay/hidrelay/internal/devstore"
	"github.com/hidrelay/hidrelay/internal/evsrc"
	"github.com/hidrelay/hidrelay/internal/gadget"
	"github.com/hidrelay/hidrelay/internal/relaysvc"
	"github.com/hidrelay/hidrelay/pkg/bus"
	"github.com/hidrelay/hidrelay/pkg/hidrep"
)

type Relay struct {
	config Config
	log    *zap.Logger

	db        *badger.DB
	configSvc *configsvc.Service
	backend   *evsrc.Backend
	monitor   *evsrc.Monitor
	hotplug   *relaysvc.HotplugBus
	store     *devstore.Store

	mu        sync.Mutex
	overrides Overrides
	engine    *relaysvc.Engine
	sinks     *gadget.Registry
}

func New(config Config) (*Relay, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	dbOptions := badger.DefaultOptions(filepath.Join(config.DataDir, "db"))
	dbOptions.Logger = &badgerLogger{l: logger.Named("badger")}
	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	hotplug := bus.NewBus[string, relaysvc.HotplugEvent](logger.Named("hotplug"))
	return &Relay{
		config:    config,
		log:       logger,
		db:        db,
		configSvc: configsvc.New(logger.Named("config")),
		backend:   evsrc.NewBackend(logger.Named("evdev")),
		monitor:   evsrc.NewMonitor(logger.Named("udev"), hotplug),
		hotplug:   hotplug,
		store:     devstore.New(db, logger.Named("devices"), time.Now),
	}, nil
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any)   { l.l.Error(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Warningf(msg string, args ...any) { l.l.Warn(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Infof(msg string, args ...any)    { l.l.Debug(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Debugf(msg string, args ...any)   { l.l.Debug(fmt.Sprintf(msg, args...)) }

// SetOverrides installs command line overrides on top of the configuration
// file. Call it before Run; the overrides stick across live reloads.
func (r *Relay) SetOverrides(overrides Overrides) {
	r.mu.Lock()
	r.overrides = overrides
	r.mu.Unlock()
}

func (r *Relay) withOverrides(cfg FileConfig) FileConfig {
	r.mu.Lock()
	overrides := r.overrides
	r.mu.Unlock()
	return overrides.apply(cfg)
}

// Run starts the relay and blocks until the context is cancelled. Startup
// fails when the configuration is invalid or no output sink can be opened;
// a configuration that becomes invalid later is ignored and the relay keeps
// running with the last valid one.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return r.configSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return r.hotplug.Start(groupCtx)
	})
	group.Go(func() error {
		return r.monitor.Start(groupCtx)
	})
	group.Go(func() error {
		return r.runEngine(groupCtx)
	})

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("relay failed: %w", err)
	}
	return nil
}

func (r *Relay) runEngine(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.configSvc.Ready():
	}

	fileCfg, err := configsvc.Register(r.configSvc, r.config.RelayConfig, DefaultFileConfig(), func(cfg FileConfig, err error) {
		if err != nil {
			r.log.Error("Failed to reload config, keeping previous", zap.Error(err))
			return
		}
		r.mu.Lock()
		engine := r.engine
		r.mu.Unlock()
		if engine != nil {
			engine.SetCriteria(r.withOverrides(cfg).criteria())
		}
	})
	if err != nil {
		return err
	}
	fileCfg = r.withOverrides(fileCfg)

	backend, err := outputBackend(r.log, fileCfg.Output)
	if err != nil {
		return err
	}
	sinks, err := gadget.NewRegistry(r.log.Named("gadget"), backend, hidrep.Kinds())
	if err != nil {
		return fmt.Errorf("open output sinks: %w", err)
	}
	defer sinks.Close()

	engine := relaysvc.NewEngine(r.log.Named("relay"), r.backend, sinks, r.hotplug, r.store)
	engine.SetCriteria(fileCfg.criteria())
	r.mu.Lock()
	r.engine = engine
	r.sinks = sinks
	r.mu.Unlock()
	return engine.Start(ctx)
}

func outputBackend(log *zap.Logger, cfg OutputConfig) (gadget.Backend, error) {
	switch cfg.Backend {
	case "", "hidg":
		paths := make(map[hidrep.SinkKind]string, len(gadget.DefaultNodePaths))
		for kind, path := range gadget.DefaultNodePaths {
			paths[kind] = path
		}
		if cfg.KeyboardPath != "" {
			paths[hidrep.SinkKeyboard] = cfg.KeyboardPath
		}
		if cfg.MousePath != "" {
			paths[hidrep.SinkMouse] = cfg.MousePath
		}
		if cfg.ConsumerPath != "" {
			paths[hidrep.SinkConsumer] = cfg.ConsumerPath
		}
		return gadget.NewNodeBackend(paths), nil
	case "uhid":
		return gadget.NewUhidBackend(log.Named("uhid"), cfg.VendorID, cfg.ProductID), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q", cfg.Backend)
	}
}

// Devices returns every input device the relay has ever recorded.
func (r *Relay) Devices() ([]devstore.Record, error) {
	return r.store.List()
}

// LinksReport pairs link statuses with the output sink kinds that opened.
type LinksReport struct {
	Sinks []hidrep.SinkKind     `json:"sinks"`
	Links []relaysvc.LinkStatus `json:"links"`
}

// Links returns the current link statuses of a running relay, or a dry-run
// resolution of the configured identifiers when the engine is not running.
func (r *Relay) Links() (LinksReport, error) {
	r.mu.Lock()
	engine := r.engine
	sinks := r.sinks
	r.mu.Unlock()
	if engine != nil {
		return LinksReport{Sinks: sinks.Kinds(), Links: engine.Links()}, nil
	}

	cfg, err := LoadFileConfig(r.config.RelayConfig)
	if err != nil {
		return LinksReport{}, err
	}
	cfg = r.withOverrides(cfg)
	report := LinksReport{Sinks: r.probeSinks(cfg.Output)}

	infos, err := r.backend.List()
	if err != nil {
		return LinksReport{}, err
	}
	ids := make([]relaysvc.Identifier, 0, len(cfg.Devices))
	for _, raw := range cfg.Devices {
		ids = append(ids, relaysvc.ParseIdentifier(raw))
	}
	matched, missing := relaysvc.Resolve(ids, cfg.AutoDiscover, infos, nil)
	for _, info := range matched {
		report.Links = append(report.Links, relaysvc.LinkStatus{
			Identifier: info.Path,
			State:      relaysvc.StateDiscovering.String(),
			Path:       info.Path,
			Name:       info.Name,
		})
	}
	for _, id := range missing {
		report.Links = append(report.Links, relaysvc.LinkStatus{
			Identifier: id.Value,
			State:      "unmatched",
		})
	}
	return report, nil
}

// probeSinks opens and closes the configured output sinks to report which
// ones are usable. Unopenable sinks are not an error here.
func (r *Relay) probeSinks(cfg OutputConfig) []hidrep.SinkKind {
	backend, err := outputBackend(r.log, cfg)
	if err != nil {
		return nil
	}
	sinks, err := gadget.NewRegistry(r.log.Named("gadget"), backend, hidrep.Kinds())
	if err != nil {
		return nil
	}
	defer sinks.Close()
	return sinks.Kinds()
}

func (r *Relay) Close() error {
	return r.db.Close()
}
