// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

// Package imaging produces fixed-size derivative images (thumbnails and
// social previews) from comic page sources.
//
// Geometry is computed by Plan as a pure function; Generator decodes the
// source, renders the plan and writes the encoded result atomically.
package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Mode selects how the source is fitted to the target canvas.
type Mode int

const (
	// ModeCover crops the source so it fills the whole canvas.
	ModeCover Mode = iota
	// ModeContain scales the whole source inside the canvas and pads the rest.
	ModeContain
)

var modeNames = [...]string{
	ModeCover:   "cover",
	ModeContain: "contain",
}

// String returns the mode's configuration name.
func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode converts a configuration or request value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cover", "crop":
		return ModeCover, nil
	case "contain", "fit":
		return ModeContain, nil
	default:
		return 0, fmt.Errorf("unknown resize mode %q", s)
	}
}

// Anchor positions the retained window (cover) or the scaled image (contain)
// along whichever axis has slack.
type Anchor int

const (
	AnchorTop Anchor = iota
	AnchorTopCenter
	AnchorCenter
	AnchorBottomCenter
	AnchorBottom
)

// anchorFractions is the share of the maximum offset each anchor applies.
var anchorFractions = [...]float64{
	AnchorTop:          0,
	AnchorTopCenter:    0.25,
	AnchorCenter:       0.5,
	AnchorBottomCenter: 0.75,
	AnchorBottom:       1,
}

var anchorNames = [...]string{
	AnchorTop:          "top",
	AnchorTopCenter:    "top_center",
	AnchorCenter:       "center",
	AnchorBottomCenter: "bottom_center",
	AnchorBottom:       "bottom",
}

// Fraction returns the anchor's offset fraction in [0, 1].
func (a Anchor) Fraction() float64 {
	if a < 0 || int(a) >= len(anchorFractions) {
		return anchorFractions[AnchorCenter]
	}
	return anchorFractions[a]
}

// String returns the anchor's configuration name.
func (a Anchor) String() string {
	if a < 0 || int(a) >= len(anchorNames) {
		return fmt.Sprintf("Anchor(%d)", int(a))
	}
	return anchorNames[a]
}

// ParseAnchor converts a configuration or request value to an Anchor.
// "left" and "right" are accepted for sources whose slack is horizontal.
func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "left":
		return AnchorTop, nil
	case "top_center", "top-center":
		return AnchorTopCenter, nil
	case "center", "middle":
		return AnchorCenter, nil
	case "bottom_center", "bottom-center":
		return AnchorBottomCenter, nil
	case "bottom", "right":
		return AnchorBottom, nil
	default:
		return 0, fmt.Errorf("unknown crop position %q", s)
	}
}

// Layout is the result of Plan.
type Layout struct {
	// Src is the region of the source to sample, relative to its origin.
	Src image.Rectangle
	// Dst is where Src lands on the canvas.
	Dst image.Rectangle
	// Canvas is the output size.
	Canvas image.Point
}

// Plan computes the crop window and placement for fitting a srcW x srcH
// source into a dstW x dstH canvas. All dimensions must be positive.
//
// Offsets are round(maxOffset * anchor.Fraction()), so they are always in
// [0, maxOffset] and collapse to 0 when the aspect ratios coincide.
func Plan(srcW, srcH, dstW, dstH int, mode Mode, anchor Anchor) (Layout, error) {
	if srcW <= 0 || srcH <= 0 {
		return Layout{}, fmt.Errorf("invalid source size %dx%d", srcW, srcH)
	}
	if dstW <= 0 || dstH <= 0 {
		return Layout{}, fmt.Errorf("invalid target size %dx%d", dstW, dstH)
	}

	layout := Layout{Canvas: image.Pt(dstW, dstH)}
	fraction := anchor.Fraction()

	// Compare aspect ratios without division: srcW/srcH vs dstW/dstH.
	srcCross := int64(srcW) * int64(dstH)
	dstCross := int64(dstW) * int64(srcH)

	switch mode {
	case ModeContain:
		layout.Src = image.Rect(0, 0, srcW, srcH)
		if srcCross >= dstCross {
			// Wider than the canvas: full width, vertical slack.
			h := clamp(roundDiv(int64(srcH)*int64(dstW), int64(srcW)), 1, dstH)
			y := offset(dstH-h, fraction)
			layout.Dst = image.Rect(0, y, dstW, y+h)
		} else {
			w := clamp(roundDiv(int64(srcW)*int64(dstH), int64(srcH)), 1, dstW)
			x := offset(dstW-w, fraction)
			layout.Dst = image.Rect(x, 0, x+w, dstH)
		}

	case ModeCover:
		layout.Dst = image.Rect(0, 0, dstW, dstH)
		switch {
		case srcCross > dstCross:
			// Wider than the canvas: crop horizontally.
			w := clamp(roundDiv(int64(srcH)*int64(dstW), int64(dstH)), 1, srcW)
			x := offset(srcW-w, fraction)
			layout.Src = image.Rect(x, 0, x+w, srcH)
		case srcCross < dstCross:
			h := clamp(roundDiv(int64(srcW)*int64(dstH), int64(dstW)), 1, srcH)
			y := offset(srcH-h, fraction)
			layout.Src = image.Rect(0, y, srcW, y+h)
		default:
			layout.Src = image.Rect(0, 0, srcW, srcH)
		}

	default:
		return Layout{}, fmt.Errorf("unknown resize mode %v", mode)
	}

	return layout, nil
}

// offset returns round(maxOffset * fraction), never negative.
func offset(maxOffset int, fraction float64) int {
	if maxOffset <= 0 {
		return 0
	}
	return clamp(int(math.Round(float64(maxOffset)*fraction)), 0, maxOffset)
}

func roundDiv(num, den int64) int {
	return int(math.Round(float64(num) / float64(den)))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
