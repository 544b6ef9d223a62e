// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Scaraworks

package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	// TCP connection flags
	plcHost string
	plcPort int

	// Serial connection flags
	serialPort string
	baudRate   int

	// WebSocket gateway flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Handshake tuning
	linkTimeout time.Duration
	linkRetries int

	// Register layout override
	layoutPath string
)

var rootCmd = &cobra.Command{
	Use:   "plotstream",
	Short: "SCARA plotter trajectory streamer",
	Long: `Plotstream - streams pre-computed plotter trajectories to a Mitsubishi
FX5U controller over the MC protocol.

Each waypoint (joint positions, velocities, pen state) is written to the
controller's data registers and paced against a token handshake, so at most
one command is ever in flight. Pen transitions block until the controller
echoes the settled pen position.

Connection modes:
  TCP:       --host 192.168.3.250 [--plc-port 5007]
  Serial:    --serial /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://gateway/plc [--username user]

For WebSocket authentication, the password is read from the
PLOTSTREAM_PASSWORD environment variable, or prompted interactively if not
set. The --password flag is intentionally not provided to avoid leaking
credentials in shell history.

The controller's register wiring is built in for the bench plotter; pass
--layout plotter.yaml to target a different ladder program.`,
	Version: "1.2.0",
}

func init() {
	// TCP connection flags
	rootCmd.PersistentFlags().StringVar(&plcHost, "host", "", "Controller IP address")
	rootCmd.PersistentFlags().IntVar(&plcPort, "plc-port", 5007, "MC protocol TCP port")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&serialPort, "serial", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket gateway flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket gateway URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Handshake tuning
	rootCmd.PersistentFlags().DurationVar(&linkTimeout, "timeout", 500*time.Millisecond, "Per-exchange acknowledgement timeout")
	rootCmd.PersistentFlags().IntVar(&linkRetries, "retries", 3, "Retries per command before declaring a stall")

	// Register layout override
	rootCmd.PersistentFlags().StringVar(&layoutPath, "layout", "", "Register layout YAML (default: built-in bench wiring)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
