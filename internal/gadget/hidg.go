package gadget

import (
	"fmt"
	"os"
	"time"

	"github.com/hidrelay/hidrelay/pkg/hidrep"
)

// DefaultNodePaths follows the enumeration order of the Raspberry Pi HID
// gadget function: the boot mouse function comes first.
var DefaultNodePaths = map[hidrep.SinkKind]string{
	hidrep.SinkMouse:    "/dev/hidg0",
	hidrep.SinkKeyboard: "/dev/hidg1",
	hidrep.SinkConsumer: "/dev/hidg2",
}

// writeTimeout bounds each report write. With no host reading the gadget
// endpoint a write would otherwise block forever and wedge the link.
const writeTimeout = 5 * time.Millisecond

// NodeBackend opens pre-provisioned USB gadget device nodes (/dev/hidg*).
// Gadget configuration itself happens outside the relay.
type NodeBackend struct {
	paths map[hidrep.SinkKind]string
}

func NewNodeBackend(paths map[hidrep.SinkKind]string) *NodeBackend {
	if paths == nil {
		paths = DefaultNodePaths
	}
	return &NodeBackend{paths: paths}
}

func (b *NodeBackend) Open(kind hidrep.SinkKind) (Handle, error) {
	path, ok := b.paths[kind]
	if !ok || path == "" {
		return nil, fmt.Errorf("no device node configured for %s", kind)
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0o666)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &nodeHandle{f: f}, nil
}

type nodeHandle struct {
	f *os.File
}

func (h *nodeHandle) Write(p []byte) (int, error) {
	h.f.SetWriteDeadline(time.Now().Add(writeTimeout))
	return h.f.Write(p)
}

func (h *nodeHandle) Close() error {
	return h.f.Close()
}
