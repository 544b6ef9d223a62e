// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Scaraworks

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read the controller's streaming registers once",
	Long: `Probe the controller and print a one-shot snapshot of every register
in the streaming layout: axis positions and velocities, the handshake
token pair, and the drive, pen and fault flags.

Useful for checking wiring before a run and for diagnosing a faulted
run after the fact.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	session, endpoint, err := openSession()
	if err != nil {
		return err
	}
	defer session.Close()

	layout, err := activeLayout()
	if err != nil {
		return err
	}

	fmt.Printf("Controller: %s\n\n", endpoint)

	for i, axis := range layout.Axes {
		pos, err := session.ReadDwords(axis.Pos, 1)
		if err != nil {
			return fmt.Errorf("read axis %d position: %w", i+1, err)
		}
		vel, err := session.ReadDwords(axis.Vel, 1)
		if err != nil {
			return fmt.Errorf("read axis %d velocity: %w", i+1, err)
		}
		fmt.Printf("J%d  pos %-10d (%s)  vel %-8d (%s)\n", i+1, pos[0], axis.Pos, vel[0], axis.Vel)
	}

	token, err := session.ReadDwords(layout.Token, 1)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	echo, err := session.ReadDwords(layout.TokenEcho, 1)
	if err != nil {
		return fmt.Errorf("read token echo: %w", err)
	}
	fmt.Printf("\ntoken %d (%s)  echo %d (%s)", token[0], layout.Token, echo[0], layout.TokenEcho)
	if token[0] != echo[0] {
		fmt.Print("  [command pending]")
	}
	fmt.Println()

	drive, err := session.ReadBits(layout.Drive, 1)
	if err != nil {
		return fmt.Errorf("read drive: %w", err)
	}
	pen, err := session.ReadBits(layout.PenFlag, 1)
	if err != nil {
		return fmt.Errorf("read pen flag: %w", err)
	}
	penEcho, err := session.ReadBits(layout.PenEcho, 1)
	if err != nil {
		return fmt.Errorf("read pen echo: %w", err)
	}
	fault, err := session.ReadBits(layout.Fault, 1)
	if err != nil {
		return fmt.Errorf("read fault: %w", err)
	}

	fmt.Printf("drive %s (%s)  pen %s (%s)  pen echo %s (%s)\n",
		onOff(drive[0]), layout.Drive,
		onOff(pen[0]), layout.PenFlag,
		onOff(penEcho[0]), layout.PenEcho)

	if fault[0] {
		fmt.Printf("fault ASSERTED (%s)\n", layout.Fault)
		return fmt.Errorf("controller fault flag is asserted")
	}
	fmt.Printf("fault clear (%s)\n", layout.Fault)

	return nil
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "off"
}
