// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

// Package mcproto implements the binary 3E frame of the MELSEC
// communication protocol (MC protocol) as spoken by iQ-F series PLCs
// such as the FX5U.
//
// The package is a pure codec: it encodes batch read/write requests and
// decodes the matching responses, byte by byte, without performing any
// I/O. Transport and retry policy live in pkg/plclink and pkg/stream.
package mcproto

// Frame subheaders (binary code, 3E frame)
const (
	SubheaderRequest  = 0x0050
	SubheaderResponse = 0x00D0
)

// Fixed routing bytes for a directly connected CPU module
const (
	NetworkNo     = 0x00
	PCNo          = 0xFF
	DestModuleIO  = 0x03FF
	DestModuleSta = 0x00
)

// Commands
const (
	CmdBatchRead  = 0x0401
	CmdBatchWrite = 0x1401
)

// Subcommands select the device access unit
const (
	SubcmdWord = 0x0000
	SubcmdBit  = 0x0001
)

// Batch size limits for the FX5U CPU module
const (
	MaxWordPoints = 960
	MaxBitPoints  = 3584
)

// requestHeaderSize is the byte count of a request frame before the
// write payload: subheader(2) + routing(5) + length(2) + timer(2) +
// command(2) + subcommand(2) + device(4) + count(2).
const requestHeaderSize = 21

// DefaultMonitoringTimer is the CPU-side watchdog for one exchange,
// in 250 ms units. 4 units = 1 s.
const DefaultMonitoringTimer = 4

// End codes reported by the CPU in the response frame
const (
	EndOK               = 0x0000
	EndWrongCommand     = 0xC059
	EndWrongFormat      = 0xC05C
	EndWrongLength      = 0xC061
	EndDeviceRange      = 0xC056
	EndTooManyPoints    = 0xC051
	EndMonitoringTimer  = 0xC05B
	EndCPUBusy          = 0xCEE0
	EndOtherNetworkReq  = 0xC050
)

// endCodeNames maps known end codes to short diagnostic names.
var endCodeNames = map[uint16]string{
	EndWrongCommand:    "unsupported command or subcommand",
	EndWrongFormat:     "request data format error",
	EndWrongLength:     "request data length mismatch",
	EndDeviceRange:     "device number out of range",
	EndTooManyPoints:   "too many device points",
	EndMonitoringTimer: "monitoring timer expired in CPU",
	EndCPUBusy:         "CPU module busy",
	EndOtherNetworkReq: "request routed to wrong network",
}

// Decoder states (internal)
const (
	stateSubheader1 = iota
	stateSubheader2
	stateRouting
	stateLength
	stateEndCode
	stateData
)
