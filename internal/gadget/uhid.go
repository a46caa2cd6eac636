package gadget

import (
	"context"
	"fmt"

	"github.com/hidrelay/hidrelay/pkg/hidrep"
	"github.com/psanford/uhid"
	"go.uber.org/zap"
)

// UhidBackend backs sinks with kernel uhid virtual devices. Useful on hosts
// without USB gadget mode: the relayed reports surface as local input
// devices instead of going out on the wire.
type UhidBackend struct {
	log       *zap.Logger
	vendorID  uint32
	productID uint32
}

func NewUhidBackend(log *zap.Logger, vendorID, productID uint32) *UhidBackend {
	return &UhidBackend{log: log, vendorID: vendorID, productID: productID}
}

func uhidDeviceName(kind hidrep.SinkKind) string {
	return "hidrelay-" + kind.String()
}

// DeviceNames lists the input-device names the backend creates. Discovery
// uses this to keep the relay from consuming its own output.
func (b *UhidBackend) DeviceNames() []string {
	var names []string
	for _, kind := range hidrep.Kinds() {
		names = append(names, uhidDeviceName(kind))
	}
	return names
}

func (b *UhidBackend) Open(kind hidrep.SinkKind) (Handle, error) {
	descriptor := descriptorFor(kind)
	if descriptor == nil {
		return nil, fmt.Errorf("no descriptor for %s", kind)
	}
	dev, err := uhid.NewDevice(uhidDeviceName(kind), descriptor)
	if err != nil {
		return nil, fmt.Errorf("creating uhid device: %w", err)
	}
	dev.Data.Bus = 0x03
	dev.Data.VendorID = b.vendorID
	dev.Data.ProductID = b.productID

	ctx, cancel := context.WithCancel(context.Background())
	events, err := dev.Open(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("opening uhid device: %w", err)
	}
	h := &uhidHandle{
		log:    b.log.With(zap.Stringer("kind", kind)),
		dev:    dev,
		ctx:    ctx,
		cancel: cancel,
		events: events,
	}
	go h.drain()
	return h, nil
}

type uhidHandle struct {
	log    *zap.Logger
	dev    *uhid.Device
	ctx    context.Context
	cancel context.CancelFunc
	events chan uhid.Event
}

// drain consumes kernel-originated events (LED output reports and report
// queries) which the relay has no use for.
func (h *uhidHandle) drain() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case event := <-h.events:
			h.log.Debug("Ignoring uhid event", zap.Uint32("type", uint32(event.Type)))
		}
	}
}

func (h *uhidHandle) Write(p []byte) (int, error) {
	if err := h.dev.InjectEvent(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (h *uhidHandle) Close() error {
	h.cancel()
	return h.dev.Close()
}
