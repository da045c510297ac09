package scenefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Generated source prefixes.
const (
	colorPrefix    = "color:"
	gradientPrefix = "gradient:"
)

// gradientWidth is the texel width of generated gradients.
const gradientWidth = 256

// ErrBadColor is returned for malformed color or gradient sources.
var ErrBadColor = errors.New("scenefile: bad color")

// Resolver resolves document sources into encoded image bytes.
type Resolver struct {
	// Dir is the base of relative file paths.
	Dir string
}

// NewResolver returns a resolver for the sources of sc.
func NewResolver(sc *Scene) Resolver {
	return Resolver{Dir: sc.Dir}
}

// Resolve implements compose.Resolver.
func (r Resolver) Resolve(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(ref, colorPrefix):
		c, err := parseColor(strings.TrimPrefix(ref, colorPrefix))
		if err != nil {
			return nil, err
		}
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.SetNRGBA(0, 0, c)
		return encodePNG(img)
	case strings.HasPrefix(ref, gradientPrefix):
		img, err := gradient(strings.TrimPrefix(ref, gradientPrefix))
		if err != nil {
			return nil, err
		}
		return encodePNG(img)
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenefile: %w", err)
	}
	return data, nil
}

// parseColor parses #rgb, #rrggbb or #rrggbbaa.
func parseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	alpha := uint8(255)
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
		}
		alpha = uint8(a)
		s = s[:7]
	}
	c, err := hex(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// gradient renders "from,to" as a horizontal ramp blended in L*a*b*.
func gradient(spec string) (*image.NRGBA, error) {
	from, to, ok := strings.Cut(spec, ",")
	if !ok {
		return nil, fmt.Errorf("%w: gradient %q needs two colors", ErrBadColor, spec)
	}
	a, err := hex(strings.TrimSpace(from))
	if err != nil {
		return nil, err
	}
	b, err := hex(strings.TrimSpace(to))
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, gradientWidth, 1))
	for x := range gradientWidth {
		t := float64(x) / (gradientWidth - 1)
		r, g, bl := a.BlendLab(b, t).Clamped().RGB255()
		img.SetNRGBA(x, 0, color.NRGBA{R: r, G: g, B: bl, A: 255})
	}
	return img, nil
}

// hex parses #rgb or #rrggbb.
func hex(s string) (colorful.Color, error) {
	if !strings.HasPrefix(s, "#") || (len(s) != 4 && len(s) != 7) {
		return colorful.Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%w: %q: %w", ErrBadColor, s, err)
	}
	return c, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
