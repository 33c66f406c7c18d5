package domain

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Color is one of the bandana yarn colors offered by the studio. The token is
// what gets substituted into the provider instruction.
type Color string

const (
	ColorCoral    Color = "coral"
	ColorLavender Color = "lavender"
	ColorMint     Color = "mint"
	ColorSunshine Color = "sunshine"
	ColorSkyBlue  Color = "sky-blue"
	ColorPeach    Color = "peach"
	ColorRose     Color = "rose"
	ColorSage     Color = "sage"
)

// Swatch is a palette entry as rendered by the color picker.
type Swatch struct {
	Color Color  `json:"value"`
	Name  string `json:"name"`
	Hex   string `json:"hex"`
}

var palette = []struct {
	color Color
	hex   string
}{
	{ColorCoral, "#FF7F50"},
	{ColorLavender, "#E6E6FA"},
	{ColorMint, "#98FB98"},
	{ColorSunshine, "#FFD700"},
	{ColorSkyBlue, "#87CEEB"},
	{ColorPeach, "#FFDAB9"},
	{ColorRose, "#FFB6C1"},
	{ColorSage, "#9DC183"},
}

// ParseColor normalizes free-form input into a supported color.
func ParseColor(raw string) (Color, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if token == "" {
		return "", fmt.Errorf("%w: color is required", ErrUnknownColor)
	}
	for _, p := range palette {
		if string(p.color) == token {
			return p.color, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColor, raw)
}

// Valid reports whether c belongs to the palette.
func (c Color) Valid() bool {
	_, ok := lookupHex(c)
	return ok
}

// Name renders the display label, e.g. "Sky Blue" for sky-blue.
func (c Color) Name() string {
	// Casers carry state and must not be shared between goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(string(c), "-", " "))
}

// Hex returns the swatch value or an empty string for unknown colors.
func (c Color) Hex() string {
	hex, _ := lookupHex(c)
	return hex
}

// RGBA parses the swatch hex. Unknown colors yield opaque black.
func (c Color) RGBA() color.RGBA {
	hex := strings.TrimPrefix(c.Hex(), "#")
	if len(hex) != 6 {
		return color.RGBA{A: 255}
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// Swatches lists the palette in picker order.
func Swatches() []Swatch {
	out := make([]Swatch, len(palette))
	for i, p := range palette {
		out[i] = Swatch{Color: p.color, Name: p.color.Name(), Hex: p.hex}
	}
	return out
}

func lookupHex(c Color) (string, bool) {
	for _, p := range palette {
		if p.color == c {
			return p.hex, true
		}
	}
	return "", false
}
