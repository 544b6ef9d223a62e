// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package stream

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scaraworks/plotstream/pkg/mcproto"
)

// AxisRegisters holds the 32-bit position and velocity registers of
// one axis. Each occupies two consecutive word devices, low word first.
type AxisRegisters struct {
	Pos mcproto.Device
	Vel mcproto.Device
}

// Layout is the controller's register map for the streaming handshake.
// The exact addresses are device configuration, not protocol: they are
// loadable from a YAML file and validated here.
type Layout struct {
	Axes []AxisRegisters

	// Token is written with each command's sequence index; TokenEcho
	// is written back by the controller once the command is consumed.
	Token     mcproto.Device
	TokenEcho mcproto.Device

	// PenFlag commands the pen actuator; PenEcho reports the settled
	// pen position. Drive enables the axis drives for the run. Fault
	// is the controller's hardware fault flag.
	PenFlag mcproto.Device
	PenEcho mcproto.Device
	Drive   mcproto.Device
	Fault   mcproto.Device
}

// DefaultLayout mirrors the bench plotter's ladder program wiring:
// J1 in D100/D102, J2 in D104/D106, handshake token in D112/D114,
// drive enable M3, pen M4/M5, fault M6.
func DefaultLayout() Layout {
	return Layout{
		Axes: []AxisRegisters{
			{Pos: mcproto.MustDevice("D100"), Vel: mcproto.MustDevice("D102")},
			{Pos: mcproto.MustDevice("D104"), Vel: mcproto.MustDevice("D106")},
		},
		Token:     mcproto.MustDevice("D112"),
		TokenEcho: mcproto.MustDevice("D114"),
		Drive:     mcproto.MustDevice("M3"),
		PenFlag:   mcproto.MustDevice("M4"),
		PenEcho:   mcproto.MustDevice("M5"),
		Fault:     mcproto.MustDevice("M6"),
	}
}

// layoutFile is the YAML form of a Layout.
type layoutFile struct {
	Axes []struct {
		Pos string `yaml:"pos"`
		Vel string `yaml:"vel"`
	} `yaml:"axes"`
	Token     string `yaml:"token"`
	TokenEcho string `yaml:"token_echo"`
	PenFlag   string `yaml:"pen_flag"`
	PenEcho   string `yaml:"pen_echo"`
	Drive     string `yaml:"drive"`
	Fault     string `yaml:"fault"`
}

// LoadLayout reads and validates a register layout YAML file.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout parses and validates layout YAML.
func ParseLayout(data []byte) (Layout, error) {
	var file layoutFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}

	var layout Layout
	var parseErr error
	parse := func(field, s string) mcproto.Device {
		if parseErr != nil {
			return mcproto.Device{}
		}
		if s == "" {
			parseErr = fmt.Errorf("layout: missing %s", field)
			return mcproto.Device{}
		}
		d, err := mcproto.ParseDevice(s)
		if err != nil {
			parseErr = fmt.Errorf("layout %s: %w", field, err)
		}
		return d
	}

	for i, axis := range file.Axes {
		layout.Axes = append(layout.Axes, AxisRegisters{
			Pos: parse(fmt.Sprintf("axes[%d].pos", i), axis.Pos),
			Vel: parse(fmt.Sprintf("axes[%d].vel", i), axis.Vel),
		})
	}
	layout.Token = parse("token", file.Token)
	layout.TokenEcho = parse("token_echo", file.TokenEcho)
	layout.PenFlag = parse("pen_flag", file.PenFlag)
	layout.PenEcho = parse("pen_echo", file.PenEcho)
	layout.Drive = parse("drive", file.Drive)
	layout.Fault = parse("fault", file.Fault)
	if parseErr != nil {
		return Layout{}, parseErr
	}

	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

// Validate checks register classes and that no two 32-bit registers
// overlap.
func (l Layout) Validate() error {
	if len(l.Axes) == 0 {
		return fmt.Errorf("layout: at least one axis required")
	}

	words := map[mcproto.Device]string{}
	claimDword := func(name string, d mcproto.Device) error {
		if d.Class.IsBit() {
			return fmt.Errorf("layout %s: %s is a bit device, want word device", name, d)
		}
		for i := uint32(0); i < 2; i++ {
			w := d.Offset(i)
			if other, taken := words[w]; taken {
				return fmt.Errorf("layout %s: %s overlaps %s", name, d, other)
			}
			words[w] = name
		}
		return nil
	}

	for i, axis := range l.Axes {
		if err := claimDword(fmt.Sprintf("axes[%d].pos", i), axis.Pos); err != nil {
			return err
		}
		if err := claimDword(fmt.Sprintf("axes[%d].vel", i), axis.Vel); err != nil {
			return err
		}
	}
	if err := claimDword("token", l.Token); err != nil {
		return err
	}
	if err := claimDword("token_echo", l.TokenEcho); err != nil {
		return err
	}

	bits := map[mcproto.Device]string{}
	for name, d := range map[string]mcproto.Device{
		"pen_flag": l.PenFlag,
		"pen_echo": l.PenEcho,
		"drive":    l.Drive,
		"fault":    l.Fault,
	} {
		if !d.Class.IsBit() {
			return fmt.Errorf("layout %s: %s is a word device, want bit device", name, d)
		}
		if other, taken := bits[d]; taken {
			return fmt.Errorf("layout %s: %s overlaps %s", name, d, other)
		}
		bits[d] = name
	}
	return nil
}
