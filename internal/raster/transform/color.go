package transform

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses a "#RGB", "#RRGGBB" or "#AARRGGBB" colour string
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	alpha := uint8(0xff)
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[1:3], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in colour %q: %w", s, err)
		}
		alpha = uint8(a)
		s = "#" + s[3:]
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}

	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}
