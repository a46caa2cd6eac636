package relay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ghodss/yaml"

	"github.com/hidrelay/hidrelay/internal/relaysvc"
)

// Config locates the relay's data directory and user configuration file.
// Live reload only applies to the user configuration.
type Config struct {
	DataDir     string `json:"dataDir"`
	RelayConfig string `json:"relayConfig"`
}

// FileConfig is the user-driven configuration stored in relay.yml.
type FileConfig struct {
	// Devices selects which input devices to relay: device node paths,
	// hardware addresses or name fragments.
	Devices []string `json:"devices"`
	// AutoDiscover relays every input device, ignoring Devices.
	AutoDiscover bool `json:"autoDiscover"`
	// Grab takes exclusive hold of relayed devices.
	Grab   bool         `json:"grab"`
	Output OutputConfig `json:"output"`
}

// OutputConfig selects how reports reach the host.
type OutputConfig struct {
	// Backend is "hidg" (USB gadget device nodes, the default) or "uhid"
	// (kernel virtual HID devices, useful without gadget hardware).
	Backend      string `json:"backend"`
	KeyboardPath string `json:"keyboardPath"`
	MousePath    string `json:"mousePath"`
	ConsumerPath string `json:"consumerPath"`
	VendorID     uint32 `json:"vendorId"`
	ProductID    uint32 `json:"productId"`
}

// Overrides carries command line settings that win over relay.yml, including
// across live reloads. A nil pointer field leaves the file value in place.
type Overrides struct {
	Devices      []string
	AutoDiscover *bool
	Grab         *bool
	Backend      string
}

func (o Overrides) apply(cfg FileConfig) FileConfig {
	if len(o.Devices) > 0 {
		cfg.Devices = o.Devices
	}
	if o.AutoDiscover != nil {
		cfg.AutoDiscover = *o.AutoDiscover
	}
	if o.Grab != nil {
		cfg.Grab = *o.Grab
	}
	if o.Backend != "" {
		cfg.Output.Backend = o.Backend
	}
	return cfg
}

func DefaultFileConfig() FileConfig {
	return FileConfig{
		Output: OutputConfig{
			Backend:   "hidg",
			VendorID:  0x1d6b,
			ProductID: 0x0104,
		},
	}
}

func (c FileConfig) criteria() relaysvc.Criteria {
	return relaysvc.Criteria{
		Identifiers:  c.Devices,
		AutoDiscover: c.AutoDiscover,
		Grab:         c.Grab,
	}
}

// LoadFileConfig reads the user configuration once, without watching it.
// A missing file yields the defaults.
func LoadFileConfig(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return cfg, nil
	case err != nil:
		return cfg, err
	}
	jsonB, err := yaml.YAMLToJSON(data)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := json.Unmarshal(jsonB, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
