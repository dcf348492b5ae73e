package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

// maxRasterDim limits either side of rasterized page, huge viewBox would
// otherwise allocate gigabytes.
var maxRasterDim = 8192

// Rect is an area in page (viewBox) coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Underlay is painted under page content before it is rasterized.
type Underlay struct {
	Rect  Rect
	Color color.Color
}

// Rasterize draws page to white RGBA image of the given width keeping aspect
// ratio (0 keeps viewBox size). Underlays are painted first so page content
// stays on top of them.
func Rasterize(p *Page, width int, under ...Underlay) (*image.RGBA, error) {
	data, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("unable to read page graphic: %w", err)
	}

	vb := p.ViewBox
	w, h := int(math.Ceil(vb.W)), int(math.Ceil(vb.H))
	if width > 0 {
		w = width
		h = int(math.Round(float64(w) * vb.H / vb.W))
	}
	w, h = max(w, 1), max(h, 1)
	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	scale := float64(w) / vb.W
	for _, u := range under {
		r := image.Rect(
			int(math.Floor((u.Rect.X-vb.MinX)*scale)),
			int(math.Floor((u.Rect.Y-vb.MinY)*scale)),
			int(math.Ceil((u.Rect.X-vb.MinX+u.Rect.W)*scale)),
			int(math.Ceil((u.Rect.Y-vb.MinY+u.Rect.H)*scale)),
		).Intersect(dst.Bounds())
		draw.Draw(dst, r, image.NewUniform(u.Color), image.Point{}, draw.Over)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}

// ParseHexColor converts "#rrggbb" or "#rgb" to opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 0xff}
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 4:
		_, err = fmt.Sscanf(s, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R, c.G, c.B = c.R*17, c.G*17, c.B*17
	default:
		err = fmt.Errorf("bad color %q", s)
	}
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return c, nil
}
