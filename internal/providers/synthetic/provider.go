package synthetic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"tryon/internal/domain"
	"tryon/internal/imagegen"
)

// Provider renders a deterministic preview locally. It stands in for the
// hosted model during development and must be selected explicitly.
type Provider struct {
	delay  time.Duration
	logger zerolog.Logger
}

// Option customizes the provider.
type Option func(*Provider)

// WithDelay simulates provider latency.
func WithDelay(d time.Duration) Option {
	return func(p *Provider) { p.delay = d }
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New constructs the provider.
func New(opts ...Option) *Provider {
	p := &Provider{logger: zerolog.New(io.Discard)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SendMultimodalRequest paints a crochet band in the requested color across
// the top of the person photo (the last inline part). When the photo cannot
// be decoded a striped canvas is returned instead.
func (p *Provider) SendMultimodalRequest(ctx context.Context, parts []imagegen.Part) (*imagegen.Response, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		instruction string
		photo       []byte
	)
	for _, part := range parts {
		if part.Inline != nil {
			photo = part.Inline.Data
			continue
		}
		instruction += part.Text
	}

	seed := deterministicSeed(instruction, photo)
	c := colorFromInstruction(instruction)
	data, err := render(photo, c, seed)
	if err != nil {
		return nil, fmt.Errorf("synthetic: %w", err)
	}

	p.logger.Debug().
		Str("color", string(c)).
		Str("seed", seed).
		Int("bytes", len(data)).
		Msg("synthetic: rendered preview")

	return &imagegen.Response{
		FinishReason: "STOP",
		Parts: []imagegen.Part{{Inline: &imagegen.InlineData{
			MediaType: "image/png",
			Data:      data,
		}}},
	}, nil
}

// colorFromInstruction prefers a token written as "color <token>" and falls
// back to any palette token found in the text.
func colorFromInstruction(text string) domain.Color {
	lower := strings.ToLower(text)
	swatches := domain.Swatches()
	for _, s := range swatches {
		if strings.Contains(lower, "color "+string(s.Color)) {
			return s.Color
		}
	}
	for _, s := range swatches {
		if strings.Contains(lower, string(s.Color)) {
			return s.Color
		}
	}
	return domain.ColorCoral
}

func render(photo []byte, c domain.Color, seed string) ([]byte, error) {
	var canvas *image.RGBA
	if src, _, err := image.Decode(bytes.NewReader(photo)); err == nil {
		b := src.Bounds()
		canvas = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)
	} else {
		canvas = image.NewRGBA(image.Rect(0, 0, 1024, 1024))
		draw.Draw(canvas, canvas.Bounds(), &image.Uniform{colorFromSeed(seed, 0)}, image.Point{}, draw.Src)
	}

	width, height := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	yarn := c.RGBA()
	stitch := shade(yarn, 0.75)

	band := image.Rect(width/6, height/12, width-width/6, height/12+maxInt(8, height/6))
	draw.Draw(canvas, band, &image.Uniform{yarn}, image.Point{}, draw.Over)

	cell := maxInt(4, width/64)
	for y := band.Min.Y; y < band.Max.Y; y += cell {
		for x := band.Min.X; x < band.Max.X; x += cell {
			if ((x-band.Min.X)/cell+(y-band.Min.Y)/cell)%2 == 0 {
				continue
			}
			stitchRect := image.Rect(x, y, minInt(x+cell/2, band.Max.X), minInt(y+cell/2, band.Max.Y))
			draw.Draw(canvas, stitchRect, &image.Uniform{stitch}, image.Point{}, draw.Over)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func shade(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func colorFromSeed(seed string, shift int) color.RGBA {
	raw, err := hex.DecodeString(seed)
	if err != nil || len(raw) < 3 {
		return color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}
	}
	i := (shift * 3) % (len(raw) - 2)
	// Keep the background light so the band stays visible.
	return color.RGBA{R: 0x80 | raw[i], G: 0x80 | raw[i+1], B: 0x80 | raw[i+2], A: 0xFF}
}

func deterministicSeed(instruction string, photo []byte) string {
	hasher := sha256.New()
	hasher.Write([]byte(instruction))
	hasher.Write([]byte{'|'})
	hasher.Write(photo)
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var _ imagegen.Provider = (*Provider)(nil)
