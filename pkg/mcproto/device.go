// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package mcproto

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceClass identifies a PLC device (register) class.
type DeviceClass uint8

// Device class codes as used on the wire (binary code, 3E frame).
const (
	ClassD  DeviceClass = 0xA8 // data register (word)
	ClassSD DeviceClass = 0xA9 // special data register (word)
	ClassR  DeviceClass = 0xAF // file register (word)
	ClassW  DeviceClass = 0xB4 // link register (word)
	ClassM  DeviceClass = 0x90 // internal relay (bit)
	ClassSM DeviceClass = 0x91 // special relay (bit)
	ClassL  DeviceClass = 0x92 // latch relay (bit)
	ClassX  DeviceClass = 0x9C // input (bit)
	ClassY  DeviceClass = 0x9D // output (bit)
)

var classSymbols = map[DeviceClass]string{
	ClassD:  "D",
	ClassSD: "SD",
	ClassR:  "R",
	ClassW:  "W",
	ClassM:  "M",
	ClassSM: "SM",
	ClassL:  "L",
	ClassX:  "X",
	ClassY:  "Y",
}

// IsBit reports whether the class is bit-addressed.
func (c DeviceClass) IsBit() bool {
	switch c {
	case ClassM, ClassSM, ClassL, ClassX, ClassY:
		return true
	}
	return false
}

// String returns the class symbol ("D", "M", ...).
func (c DeviceClass) String() string {
	if s, ok := classSymbols[c]; ok {
		return s
	}
	return fmt.Sprintf("0x%02X", uint8(c))
}

// Device is one addressable PLC device: a class plus a device number.
// The zero value is not a valid device.
type Device struct {
	Class  DeviceClass
	Number uint32
}

// String returns the textual form used in layout files, e.g. "D100".
func (d Device) String() string {
	return fmt.Sprintf("%s%d", d.Class, d.Number)
}

// Offset returns the device advanced by n points within the same class.
func (d Device) Offset(n uint32) Device {
	return Device{Class: d.Class, Number: d.Number + n}
}

// ParseDevice parses the textual device form ("D100", "M3", "SM400").
// The symbol is case-insensitive. Longer symbols are matched first so
// that "SM400" does not parse as an S-class device.
func ParseDevice(s string) (Device, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	var match DeviceClass
	var matchLen int
	for class, sym := range classSymbols {
		if strings.HasPrefix(upper, sym) && len(sym) > matchLen {
			match = class
			matchLen = len(sym)
		}
	}
	if matchLen == 0 {
		return Device{}, fmt.Errorf("unknown device class in %q", s)
	}
	num, err := strconv.ParseUint(upper[matchLen:], 10, 24)
	if err != nil {
		return Device{}, fmt.Errorf("invalid device number in %q: %v", s, err)
	}
	return Device{Class: match, Number: uint32(num)}, nil
}

// MustDevice is ParseDevice for compile-time constants; it panics on
// malformed input.
func MustDevice(s string) Device {
	d, err := ParseDevice(s)
	if err != nil {
		panic("mcproto: " + err.Error())
	}
	return d
}
