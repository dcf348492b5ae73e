package render

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"scorewd/config"
	"scorewd/score"
)

// Renderer rasterizes score pages with optional measure highlight.
type Renderer struct {
	cfg       *config.RenderConfig
	log       *zap.Logger
	highlight Underlay
}

func NewRenderer(cfg *config.RenderConfig, log *zap.Logger) (*Renderer, error) {
	c, err := ParseHexColor(cfg.HighlightColor)
	if err != nil {
		return nil, err
	}
	return &Renderer{cfg: cfg, log: log.Named("render"), highlight: Underlay{Color: c}}, nil
}

// Page rasterizes zero based page. When elid names an element on this page
// it is highlighted the way viewer does it during playback.
func (r *Renderer) Page(data []byte, idx *score.Index, page int, elid string) (image.Image, error) {
	p, err := ParsePage(data)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page+1, err)
	}

	var under []Underlay
	if e := idx.HighlightOnPage(elid, page); e != nil {
		u := r.highlight
		u.Rect = Rect{X: e.Pos.X, Y: e.Pos.Y, W: e.Size.W, H: e.Size.H}
		under = append(under, u)
		r.log.Debug("Highlighting element", zap.Int("page", page+1), zap.String("elid", elid))
	}

	img, err := Rasterize(p, r.cfg.Width, under...)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page+1, err)
	}
	return img, nil
}

// Encode encodes image in configured format.
func (r *Renderer) Encode(img image.Image) ([]byte, error) {
	return Encode(img, r.cfg.Format, r.cfg.JPEGQuality, r.cfg.JPEGDensity)
}

// Sheet builds contact sheet of rendered pages.
func (r *Renderer) Sheet(pages []image.Image) image.Image {
	return Sheet(pages, r.cfg.SheetColumns, r.cfg.ThumbnailWidth)
}
