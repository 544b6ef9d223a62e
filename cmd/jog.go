// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Scaraworks

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scaraworks/plotstream/pkg/runctl"
)

var jogVelocity int32

var jogCmd = &cobra.Command{
	Use:   "jog J1 J2 [J3 ...]",
	Short: "Jog to a joint-space position with the pen up",
	Long: `Issue one pen-up move to the given joint-space position. One
position argument per axis, in pulses. The pen never touches the paper,
so a jog is safe for homing and setup moves.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runJog,
}

func init() {
	jogCmd.Flags().Int32Var(&jogVelocity, "velocity", 800, "Axis velocity in Hz")
	rootCmd.AddCommand(jogCmd)
}

func runJog(cmd *cobra.Command, args []string) error {
	pos, err := parseAxisValues(args)
	if err != nil {
		return err
	}
	if jogVelocity <= 0 {
		return fmt.Errorf("velocity must be positive")
	}

	vel := make([]int32, len(pos))
	for i := range vel {
		vel[i] = jogVelocity
	}

	return streamAndReport(runctl.ManualJog, runctl.Params{Pos: pos, Vel: vel})
}
