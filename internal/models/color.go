package models

import (
	"encoding/hex"
	"strings"

	"github.com/kimhsiao/memonotes/internal/errors"
)

// Color is a parsed ARGB color.
type Color uint32

var namedColors = map[string]Color{
	"black":     0xFF000000,
	"darkgray":  0xFF444444,
	"darkgrey":  0xFF444444,
	"gray":      0xFF888888,
	"grey":      0xFF888888,
	"lightgray": 0xFFCCCCCC,
	"lightgrey": 0xFFCCCCCC,
	"white":     0xFFFFFFFF,
	"red":       0xFFFF0000,
	"green":     0xFF00FF00,
	"blue":      0xFF0000FF,
	"yellow":    0xFFFFFF00,
	"cyan":      0xFF00FFFF,
	"magenta":   0xFFFF00FF,
	"aqua":      0xFF00FFFF,
	"fuchsia":   0xFFFF00FF,
	"lime":      0xFF00FF00,
	"maroon":    0xFF800000,
	"navy":      0xFF000080,
	"olive":     0xFF808000,
	"purple":    0xFF800080,
	"silver":    0xFFC0C0C0,
	"teal":      0xFF008080,
}

// ParseColor accepts #RRGGBB, #AARRGGBB or a named color.
// Anything else is rejected with TAG_INVALID; values are never coerced.
func ParseColor(s string) (Color, error) {
	if strings.HasPrefix(s, "#") {
		digits := s[1:]
		if len(digits) != 6 && len(digits) != 8 {
			return 0, errors.Newf(errors.ErrTagInvalid, "invalid color %q: expected #RRGGBB or #AARRGGBB", s)
		}
		raw, err := hex.DecodeString(digits)
		if err != nil {
			return 0, errors.Wrap(errors.ErrTagInvalid, "invalid color "+s, err)
		}
		var c Color
		for _, b := range raw {
			c = c<<8 | Color(b)
		}
		if len(raw) == 3 {
			c |= 0xFF000000
		}
		return c, nil
	}
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}
	return 0, errors.Newf(errors.ErrTagInvalid, "unknown color %q", s)
}

// Alpha, Red, Green and Blue return the channel values.
func (c Color) Alpha() uint8 { return uint8(c >> 24) }
func (c Color) Red() uint8   { return uint8(c >> 16) }
func (c Color) Green() uint8 { return uint8(c >> 8) }
func (c Color) Blue() uint8  { return uint8(c) }
