// Package color normalizes CSS color values and provides the perceptual
// math used by the remapper: brightness ordering and RGB distance.
package color

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// RGB holds explicit 8-bit channels.
type RGB struct {
	R, G, B uint8
}

var (
	hexPattern  = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	rgbPattern  = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*([0-9.]+)\s*)?\)$`)
	namedColors = map[string]string{
		"black":   "#000000",
		"white":   "#ffffff",
		"red":     "#ff0000",
		"green":   "#008000",
		"blue":    "#0000ff",
		"yellow":  "#ffff00",
		"cyan":    "#00ffff",
		"magenta": "#ff00ff",
		"gray":    "#808080",
		"grey":    "#808080",
		"orange":  "#ffa500",
		"purple":  "#800080",
	}
)

// Normalize converts a CSS color value to lowercase 6-digit hex form.
// Accepts #rgb, #rrggbb, rgb(r,g,b), rgba(r,g,b,a) and a small set of
// keyword colors. Fully transparent values and anything unparseable
// report ok=false.
func Normalize(value string) (string, bool) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" || v == "transparent" || v == "inherit" || v == "initial" || v == "currentcolor" || v == "none" {
		return "", false
	}

	if hex, ok := namedColors[v]; ok {
		return hex, true
	}

	if m := hexPattern.FindStringSubmatch(v); m != nil {
		h := m[1]
		if len(h) == 3 {
			h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
		}
		return "#" + h, true
	}

	if m := rgbPattern.FindStringSubmatch(v); m != nil {
		if m[4] != "" {
			alpha, err := strconv.ParseFloat(m[4], 64)
			if err == nil && alpha == 0 {
				return "", false
			}
		}
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		if r > 255 || g > 255 || b > 255 {
			return "", false
		}
		return fmt.Sprintf("#%02x%02x%02x", r, g, b), true
	}

	return "", false
}

// Parse decodes a normalized 6-digit hex string.
func Parse(hex string) (RGB, error) {
	h := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hex)), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q", hex)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return RGB{
		R: uint8(n >> 16),
		G: uint8(n >> 8),
		B: uint8(n),
	}, nil
}

// Hex renders the color as lowercase 6-digit hex.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Brightness returns perceived luminance in [0,255]:
// 0.299R + 0.587G + 0.114B.
func (c RGB) Brightness() float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// Distance returns Euclidean distance between two colors in RGB space.
func Distance(a, b RGB) float64 {
	return floats.Distance(
		[]float64{float64(a.R), float64(a.G), float64(a.B)},
		[]float64{float64(b.R), float64(b.G), float64(b.B)},
		2,
	)
}
