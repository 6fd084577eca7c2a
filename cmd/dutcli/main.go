// Package main is the entrypoint for the dutcli CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/morganhein/dutcli/dut"
	"github.com/morganhein/dutcli/session"
	"github.com/morganhein/dutcli/transport"
)

// Global flags
var (
	inventoryPath string
	deviceName    string
	transcript    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dutcli",
	Short: "dutcli - drive networking-device CLIs over ssh, telnet or console",
	Long: `dutcli connects to the terminal of a networking device, negotiates
login across firmware families, and runs commands with echo verification
and prompt resynchronization.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inventoryPath, "inventory", "i", "devices.yaml", "Device inventory file")
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "D", "", "Device name from the inventory")
	rootCmd.PersistentFlags().BoolVar(&transcript, "transcript", false, "Copy raw device I/O to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(softenCmd)
	rootCmd.AddCommand(spawnspecCmd)
}

// openDevice builds a registry for the selected inventory device.
func openDevice() (*dut.Registry, error) {
	cfg, err := loadConfig(inventoryPath, deviceName)
	if err != nil {
		return nil, err
	}
	reg, err := dut.New(cfg)
	if err != nil {
		return nil, err
	}
	if transcript {
		reg.CLI().Publisher().Tap(os.Stderr)
	}
	return reg, nil
}

var runCmd = &cobra.Command{
	Use:   "run [command ...]",
	Short: "Run one or more commands on a device and print their output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openDevice()
		if err != nil {
			return err
		}
		defer reg.Close()

		outs, err := reg.CLI().SendAll(args...)
		for _, out := range outs {
			fmt.Println(out)
		}
		return err
	},
}

var scriptCmd = &cobra.Command{
	Use:   "script FILE",
	Short: "Run a newline-separated command script on a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		reg, err := openDevice()
		if err != nil {
			return err
		}
		defer reg.Close()

		outs, err := reg.CLI().SendScript(string(body))
		for _, out := range outs {
			fmt.Println(out)
		}
		return err
	},
}

var softenCmd = &cobra.Command{
	Use:   "soften",
	Short: "Set up a standard operating environment on a device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openDevice()
		if err != nil {
			return err
		}
		defer reg.Close()
		return reg.Soften()
	},
}

var spawnspecCmd = &cobra.Command{
	Use:   "spawnspec URL",
	Short: "Print the client invocation a connection URL maps to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := envOptions()
		if err != nil {
			return err
		}
		inv, err := transport.ParseURL(args[0], opts)
		if err != nil {
			return err
		}
		fmt.Print(inv.Cmd)
		for _, a := range inv.Args {
			fmt.Printf(" %q", a)
		}
		fmt.Println()
		return nil
	},
}

// sessionTimeout converts the inventory's per-command timeout in seconds.
func sessionTimeout(secs int) time.Duration {
	if secs <= 0 {
		return session.DefaultTimeout
	}
	return time.Duration(secs) * time.Second
}
