// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Scaraworks

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scaraworks/plotstream/pkg/runctl"
)

var pointVelocity int32

var pointCmd = &cobra.Command{
	Use:   "point J1 J2 [J3 ...]",
	Short: "Draw a single point at a joint-space position",
	Long: `Move to the given joint-space position with the pen down, then lift
the pen. One position argument per axis, in pulses.

The move velocity applies to every axis; use --velocity to override the
default.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPoint,
}

func init() {
	pointCmd.Flags().Int32Var(&pointVelocity, "velocity", 1000, "Axis velocity in Hz")
	rootCmd.AddCommand(pointCmd)
}

func runPoint(cmd *cobra.Command, args []string) error {
	pos, err := parseAxisValues(args)
	if err != nil {
		return err
	}

	vel := make([]int32, len(pos))
	for i := range vel {
		vel[i] = pointVelocity
	}

	return streamAndReport(runctl.SinglePoint, runctl.Params{Pos: pos, Vel: vel})
}

// parseAxisValues parses one signed 32-bit value per axis.
func parseAxisValues(args []string) ([]int32, error) {
	out := make([]int32, len(args))
	for i, arg := range args {
		v, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("axis %d value %q: %v", i+1, arg, err)
		}
		out[i] = int32(v)
	}
	return out, nil
}
