// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package stream

import (
	"testing"

	"github.com/scaraworks/plotstream/pkg/mcproto"
)

const sampleLayoutYAML = `
axes:
  - pos: D100
    vel: D102
  - pos: D104
    vel: D106
token: D112
token_echo: D114
pen_flag: M4
pen_echo: M5
drive: M3
fault: M6
`

func TestParseLayout(t *testing.T) {
	layout, err := ParseLayout([]byte(sampleLayoutYAML))
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}

	if len(layout.Axes) != 2 {
		t.Fatalf("got %d axes, want 2", len(layout.Axes))
	}
	if layout.Axes[1].Pos != mcproto.MustDevice("D104") {
		t.Errorf("axes[1].pos = %s, want D104", layout.Axes[1].Pos)
	}
	if layout.Token != mcproto.MustDevice("D112") {
		t.Errorf("token = %s, want D112", layout.Token)
	}
	if layout.Fault != mcproto.MustDevice("M6") {
		t.Errorf("fault = %s, want M6", layout.Fault)
	}
}

func TestParseLayout_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "{{"},
		{"no axes", "token: D0\ntoken_echo: D2\npen_flag: M0\npen_echo: M1\ndrive: M2\nfault: M3\n"},
		{
			"missing token",
			"axes:\n  - pos: D0\n    vel: D2\ntoken_echo: D6\npen_flag: M0\npen_echo: M1\ndrive: M2\nfault: M3\n",
		},
		{
			"bad device",
			"axes:\n  - pos: Q0\n    vel: D2\ntoken: D4\ntoken_echo: D6\npen_flag: M0\npen_echo: M1\ndrive: M2\nfault: M3\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLayout([]byte(tt.yaml)); err == nil {
				t.Error("ParseLayout accepted invalid layout")
			}
		})
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Layout)
		wantErr bool
	}{
		{"default layout", func(*Layout) {}, false},
		{
			"overlapping dwords",
			func(l *Layout) { l.Token = mcproto.MustDevice("D106") },
			true,
		},
		{
			"dword straddles neighbor",
			func(l *Layout) { l.Token = mcproto.MustDevice("D113"); l.TokenEcho = mcproto.MustDevice("D114") },
			true,
		},
		{
			"bit device as token",
			func(l *Layout) { l.Token = mcproto.MustDevice("M100") },
			true,
		},
		{
			"word device as pen flag",
			func(l *Layout) { l.PenFlag = mcproto.MustDevice("D200") },
			true,
		},
		{
			"duplicate bit devices",
			func(l *Layout) { l.Fault = l.PenEcho },
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := DefaultLayout()
			tt.mutate(&layout)
			err := layout.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate accepted invalid layout")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}
