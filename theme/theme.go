// Package theme holds the light and dark palettes and the process-wide store
// of the active one.
package theme

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownMode is returned by ParseMode for anything but light or dark
var ErrUnknownMode = errors.New("unknown theme mode")

// Mode selects a palette
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

// ParseMode parses a mode name, case-insensitively
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLight:
		return ModeLight, nil
	case ModeDark:
		return ModeDark, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Opposite returns the other mode
func (m Mode) Opposite() Mode {
	if m == ModeDark {
		return ModeLight
	}
	return ModeDark
}

// Palette is the set of colors a page is drawn with
type Palette struct {
	Foreground          string `json:"foreground"`
	Background          string `json:"background"`
	BackgroundSecondary string `json:"background_secondary"`
	Accent              string `json:"accent"`
	Error               string `json:"error"`
	Info                string `json:"info"`
	Success             string `json:"success"`
	Warning             string `json:"warning"`
	Shadow              string `json:"shadow"`
}

// Breakpoints are the responsive layout widths
type Breakpoints struct {
	SM string `json:"sm"`
	MD string `json:"md"`
	LG string `json:"lg"`
	XL string `json:"xl"`
}

// DefaultBreakpoints apply to both modes
var DefaultBreakpoints = Breakpoints{
	SM: "576px",
	MD: "768px",
	LG: "992px",
	XL: "1280px",
}

// Theme is an immutable palette plus layout settings
type Theme struct {
	Mode        Mode        `json:"mode"`
	Palette     Palette     `json:"palette"`
	Breakpoints Breakpoints `json:"breakpoints"`
}

// Light returns the light theme
func Light() Theme {
	return Theme{
		Mode: ModeLight,
		Palette: Palette{
			Foreground:          "#032541",
			Background:          "#dfe6e9",
			BackgroundSecondary: "#ffffff",
			Accent:              "#82B1FF",
			Error:               "#FF5252",
			Info:                "#2196F3",
			Success:             "#4CAF50",
			Warning:             "#FFC107",
			Shadow:              MustAlpha("#032541", 0.2),
		},
		Breakpoints: DefaultBreakpoints,
	}
}

// Dark returns the dark theme. Status colors are shared with Light.
func Dark() Theme {
	return Theme{
		Mode: ModeDark,
		Palette: Palette{
			Foreground:          "#dfe6e9",
			Background:          "#032541",
			BackgroundSecondary: "#0d3354",
			Accent:              "#82B1FF",
			Error:               "#FF5252",
			Info:                "#2196F3",
			Success:             "#4CAF50",
			Warning:             "#FFC107",
			Shadow:              MustAlpha("#000000", 0.4),
		},
		Breakpoints: DefaultBreakpoints,
	}
}

// ForMode returns the theme for mode, falling back to Light
func ForMode(mode Mode) Theme {
	if mode == ModeDark {
		return Dark()
	}
	return Light()
}

// SkeletonColor is the fill used for loading placeholders: the secondary
// background, slightly darkened
func (t Theme) SkeletonColor() string {
	c, err := Darken(t.Palette.BackgroundSecondary, 0.1)
	if err != nil {
		return t.Palette.BackgroundSecondary
	}
	return c
}

// Alpha renders hex with the given opacity as a CSS rgba() value
func Alpha(hex string, alpha float64) (string, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return "", fmt.Errorf("invalid color %q: %w", hex, err)
	}

	r, g, b := c.RGB255()
	alpha = min(max(alpha, 0), 1)
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, strconv.FormatFloat(alpha, 'f', -1, 64)), nil
}

// MustAlpha is like Alpha but panics on an invalid color
func MustAlpha(hex string, alpha float64) string {
	s, err := Alpha(hex, alpha)
	if err != nil {
		panic(err)
	}
	return s
}

// Darken lowers the lightness of hex in CIE-L*a*b* space. amount 1 is one
// full step of 18 L* units.
func Darken(hex string, amount float64) (string, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return "", fmt.Errorf("invalid color %q: %w", hex, err)
	}

	l, a, b := c.Lab()
	return colorful.Lab(l-0.18*amount, a, b).Clamped().Hex(), nil
}
