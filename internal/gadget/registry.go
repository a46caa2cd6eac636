// Package gadget resolves HID sink kinds to writable gadget endpoints and
// serializes report writes per sink.
package gadget

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hidrelay/hidrelay/pkg/hidrep"
	"go.uber.org/zap"
)

var (
	// ErrSinkUnavailable classifies a failed sink write. A gone gadget
	// affects every link that targets it equally, so the registry never
	// retries; the caller decides what to do with its link.
	ErrSinkUnavailable = errors.New("output sink unavailable")

	// ErrNoSink is returned for report kinds the registry has no handle for.
	ErrNoSink = errors.New("no sink for report kind")

	// ErrNoSinksAvailable is the fatal startup condition: not a single
	// output endpoint could be opened.
	ErrNoSinksAvailable = errors.New("no output sinks available")
)

// Handle is one writable gadget endpoint.
type Handle interface {
	io.WriteCloser
}

// Backend opens gadget endpoints. Implementations: hidg device nodes and
// kernel uhid virtual devices.
type Backend interface {
	Open(kind hidrep.SinkKind) (Handle, error)
}

// virtualNamer is implemented by backends whose sinks surface as local input
// devices (uhid); discovery must not relay our own output back to us.
type virtualNamer interface {
	DeviceNames() []string
}

type sink struct {
	mu     sync.Mutex
	handle Handle
}

// Registry holds the opened sinks for the process lifetime. Handles are
// shared across links; each write is serialized per sink so two reports are
// never interleaved byte-wise on the wire.
type Registry struct {
	log     *zap.Logger
	backend Backend
	sinks   map[hidrep.SinkKind]*sink
}

// NewRegistry opens a sink for each requested kind. A kind that fails to
// open is logged and skipped; failing to open all of them is fatal.
func NewRegistry(log *zap.Logger, backend Backend, kinds []hidrep.SinkKind) (*Registry, error) {
	r := &Registry{
		log:     log,
		backend: backend,
		sinks:   make(map[hidrep.SinkKind]*sink, len(kinds)),
	}
	for _, kind := range kinds {
		handle, err := backend.Open(kind)
		if err != nil {
			log.Warn("Failed to open output sink", zap.Stringer("kind", kind), zap.Error(err))
			continue
		}
		log.Info("Output sink ready", zap.Stringer("kind", kind))
		r.sinks[kind] = &sink{handle: handle}
	}
	if len(r.sinks) == 0 {
		return nil, fmt.Errorf("%w: tried %d kinds", ErrNoSinksAvailable, len(kinds))
	}
	return r, nil
}

// Write sends one complete report to the sink of the given kind. Write
// failures are classified as ErrSinkUnavailable and propagated without
// retry.
func (r *Registry) Write(kind hidrep.SinkKind, report []byte) error {
	s, ok := r.sinks[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSink, kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.handle.Write(report); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSinkUnavailable, kind, err)
	}
	return nil
}

// Kinds returns the sink kinds that opened successfully, in report order.
func (r *Registry) Kinds() []hidrep.SinkKind {
	var kinds []hidrep.SinkKind
	for _, kind := range hidrep.Kinds() {
		if _, ok := r.sinks[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// VirtualDeviceNames lists input-device names created by the backend itself,
// if any, so auto-discovery can exclude them.
func (r *Registry) VirtualDeviceNames() []string {
	if v, ok := r.backend.(virtualNamer); ok {
		return v.DeviceNames()
	}
	return nil
}

func (r *Registry) Close() error {
	var errs []error
	for kind, s := range r.sinks {
		s.mu.Lock()
		if err := s.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s sink: %w", kind, err))
		}
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}
