package relaycli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/hidrelay/hidrelay/pkg/relay"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "hidrelay"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type relayProvider func() *relay.Relay

func NewRootCmd(configDir string) *cobra.Command {
	cfg := relay.Config{
		DataDir:     filepath.Join(configDir, "data"),
		RelayConfig: filepath.Join(configDir, "relay.yml"),
	}
	rootCmd := &cobra.Command{
		Use:   "hidrelay",
		Short: "Bluetooth to USB HID relay",
		Long:  `hidrelay forwards events from Bluetooth (and other) input devices to a USB host through HID gadget devices.`,
	}
	var r *relay.Relay
	relayProvider := func() *relay.Relay {
		return r
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&cfg.RelayConfig, "relay-config", cfg.RelayConfig, "relay config file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		r, err = relay.New(cfg)
		return err
	}
	rootCmd.AddCommand(NewRun(relayProvider))
	rootCmd.AddCommand(NewListDevices(relayProvider))
	rootCmd.AddCommand(NewListLinks(relayProvider))
	rootCmd.AddCommand(NewVersion())
	return rootCmd
}

func NewRun(r relayProvider) *cobra.Command {
	var (
		devices       []string
		autoDiscover  bool
		grab          bool
		outputBackend string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the relay",
		Long:  `Run the relay daemon: discover configured input devices and forward their events to the output devices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := relay.Overrides{Devices: devices, Backend: outputBackend}
			if cmd.Flags().Changed("auto-discover") {
				overrides.AutoDiscover = &autoDiscover
			}
			if cmd.Flags().Changed("grab") {
				overrides.Grab = &grab
			}
			r().SetOverrides(overrides)
			defer r().Close()
			return r().Run(cmd.Context())
		},
	}
	cmd.Flags().StringArrayVar(&devices, "device", nil, "input device to relay: path, address or name fragment (repeatable)")
	cmd.Flags().BoolVar(&autoDiscover, "auto-discover", false, "relay every input device")
	cmd.Flags().BoolVar(&grab, "grab", false, "take exclusive hold of relayed devices")
	cmd.Flags().StringVar(&outputBackend, "output-backend", "", `output backend: "hidg" or "uhid"`)
	return cmd
}

func NewListDevices(r relayProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List known input devices",
		Long:  `List every input device the relay has seen, including devices that are currently absent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer r().Close()
			devices, err := r().Devices()
			if err != nil {
				return err
			}
			yamlB, err := yaml.Marshal(devices)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(yamlB))
			return nil
		},
	}
}

func NewListLinks(r relayProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list-links",
		Short: "Show how configured identifiers resolve",
		Long:  `Resolve the configured device identifiers against the currently present input devices and report the available output sinks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer r().Close()
			report, err := r().Links()
			if err != nil {
				return err
			}
			yamlB, err := yaml.Marshal(report)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(yamlB))
			return nil
		},
	}
}

// Version is the release version, overridden at build time.
var Version = "dev"

func NewVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Overrides the root hook: printing the version must not open the
		// data directory.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
			return nil
		},
	}
}
