package color

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"

	"oss.terrastruct.com/connectlines/lib/go2"
)

// Default strokes connections that configure no color.
const Default = "#ffffff"

// Normalize returns the canonical lowercase hex form of a CSS color so that
// "white", "#FFF" and "rgb(255,255,255)" compare equal. Translucent colors keep
// their alpha channel.
func Normalize(colorString string) (string, error) {
	c, err := csscolorparser.Parse(strings.TrimSpace(colorString))
	if err != nil {
		return "", err
	}
	if c.A < 1 {
		return c.HexString(), nil
	}
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex(), nil
}

// OrDefault returns colorString or Default when colorString is empty.
func OrDefault(colorString string) string {
	if strings.TrimSpace(colorString) == "" {
		return Default
	}
	return colorString
}

// Key returns an identifier-safe key for colorString. Equal colors share a key.
// Strings that are not valid CSS colors are keyed by a hash of their text.
func Key(colorString string) string {
	colorString = OrDefault(colorString)
	n, err := Normalize(colorString)
	if err != nil {
		return fmt.Sprintf("x%x", uint32(go2.StringToIntHash(colorString)))
	}
	return strings.TrimPrefix(n, "#")
}

// RGBA returns the color's channels in [0, 1] for raster output.
func RGBA(colorString string) (r, g, b, a float64, err error) {
	c, err := csscolorparser.Parse(strings.TrimSpace(OrDefault(colorString)))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return c.R, c.G, c.B, c.A, nil
}
