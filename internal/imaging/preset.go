// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package imaging

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Built-in preset names.
const (
	PresetThumbnail = "thumbnail"
	PresetSocial    = "social"
)

// Preset is a named derivative size with default rendering options.
type Preset struct {
	Name    string
	Width   int
	Height  int
	Format  Format
	Quality int
	Mode    Mode
	Anchor  Anchor
}

// PresetSpec is the string form of a preset as it appears in configuration.
type PresetSpec struct {
	Width   int
	Height  int
	Format  string
	Quality int
	Mode    string
	Anchor  string
}

// DefaultPresets returns the thumbnail (187x250) and social preview (1200x630) presets.
func DefaultPresets() map[string]Preset {
	return map[string]Preset{
		PresetThumbnail: {
			Name: PresetThumbnail, Width: 187, Height: 250,
			Format: FormatWebP, Quality: 85, Mode: ModeCover, Anchor: AnchorTop,
		},
		PresetSocial: {
			Name: PresetSocial, Width: 1200, Height: 630,
			Format: FormatJPEG, Quality: 90, Mode: ModeCover, Anchor: AnchorCenter,
		},
	}
}

// NewPreset parses a configured preset.
func NewPreset(name string, spec PresetSpec) (Preset, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return Preset{}, fmt.Errorf("preset %s: invalid size %dx%d", name, spec.Width, spec.Height)
	}
	format, err := ParseFormat(spec.Format)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", name, err)
	}
	mode, err := ParseMode(spec.Mode)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", name, err)
	}
	anchor, err := ParseAnchor(spec.Anchor)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", name, err)
	}
	if spec.Quality < 1 || spec.Quality > 100 {
		return Preset{}, fmt.Errorf("preset %s: quality %d out of range 1-100", name, spec.Quality)
	}

	return Preset{
		Name:    name,
		Width:   spec.Width,
		Height:  spec.Height,
		Format:  format,
		Quality: spec.Quality,
		Mode:    mode,
		Anchor:  anchor,
	}, nil
}

// ParseHexColor parses #RRGGBB or #RGB into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
