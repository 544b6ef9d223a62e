// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks
//
// Plotstream - SCARA plotter trajectory streamer
//
// A CLI tool for streaming pre-computed motion trajectories to a MELSEC
// FX5U PLC driving a SCARA plotter, with a per-command token handshake
// and fault recovery diagnostics.

package main

import (
	"os"

	"github.com/scaraworks/plotstream/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
