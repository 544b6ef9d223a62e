// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Scaraworks

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scaraworks/plotstream/pkg/runctl"
	"github.com/scaraworks/plotstream/pkg/stream"
	"github.com/scaraworks/plotstream/pkg/trajectory"
)

var (
	runGrid     bool
	runGridSize int
)

var runCmd = &cobra.Command{
	Use:   "run [trajectory.csv]",
	Short: "Stream a full trajectory to the controller",
	Long: `Stream every waypoint of a trajectory CSV to the controller, one
command at a time, paced by the token handshake.

The CSV needs J<n>_Pos/J<n>_Hz column pairs (one pair per axis) and an
optional Pen column. With --grid, a built-in calibration grid pattern is
streamed instead of a file.

Ctrl-C aborts the run between commands: the command in flight is allowed
to finish, the pen is lifted, and the drives are disabled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runGrid, "grid", false, "Stream the built-in calibration grid instead of a CSV")
	runCmd.Flags().IntVar(&runGridSize, "grid-size", 3, "Calibration grid rows and columns")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	params := runctl.Params{}
	switch {
	case runGrid:
		grid := trajectory.DefaultGrid()
		grid.Rows = runGridSize
		grid.Cols = runGridSize
		params.Grid = &grid
	case len(args) == 1:
		params.CSVPath = args[0]
	default:
		return fmt.Errorf("pass a trajectory CSV or --grid")
	}

	return streamAndReport(runctl.FullTrajectory, params)
}

// streamAndReport opens the link, runs one mode to its terminal state,
// and reports the outcome. Shared by run, point and jog.
func streamAndReport(mode runctl.Mode, params runctl.Params) error {
	session, endpoint, err := openSession()
	if err != nil {
		return err
	}
	defer session.Close()

	layout, err := activeLayout()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Connected: %s (%d axes)\n", endpoint, len(layout.Axes))

	ctrl := &runctl.Controller{
		Port:   session,
		Layout: layout,
		Notify: func(p stream.Progress) {
			fmt.Fprintf(os.Stderr, "\racked %d (pen %s)   ", p.Acked+1, p.Pen)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := ctrl.Run(ctx, mode, params)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Println(result)
	if result.State != stream.Completed {
		if result.Err != nil {
			return fmt.Errorf("run did not complete: %w", result.Err)
		}
		return fmt.Errorf("run did not complete")
	}
	return nil
}
