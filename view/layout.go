// Package view computes horizontal page layout of the score and keeps the
// page with highlighted element in view.
package view

import (
	"math"

	"scorewd/score"
)

// Display height limits.
const (
	maxHeight       = 1200.0
	maxZoomedHeight = 1350.0
	windowReserve   = 160.0 // room for controls below the pages
	heightRatio     = 1.3
	zoomedRatio     = 1.45
	// pageBorder is taken off page height before aspect is applied
	pageBorder = 2.0
)

// PageBox is horizontal extent of a single page inside scrollable content.
type PageBox struct {
	Left, Width float64
}

// Right returns right edge of the page.
func (p PageBox) Right() float64 {
	return p.Left + p.Width
}

// DisplayHeight returns height of page strip for given container width and
// window height.
func DisplayHeight(width, windowHeight float64, zoomed bool) float64 {
	if zoomed {
		return math.Min(maxZoomedHeight, width*zoomedRatio)
	}
	return math.Min(maxHeight, math.Min(windowHeight-windowReserve, width*heightRatio))
}

// PageWidth returns width of the page displayed with given height.
func PageWidth(height float64, format score.PageFormat) float64 {
	if format.Height <= 0 {
		return 0
	}
	return math.Max(height-pageBorder, 0) * format.Width / format.Height
}

// Layout places pages left to right without gaps.
type Layout struct {
	Height float64
	Pages  []PageBox
}

// NewLayout computes layout for number of pages of the same format.
func NewLayout(pages int, format score.PageFormat, width, windowHeight float64, zoomed bool) Layout {
	l := Layout{Height: DisplayHeight(width, windowHeight, zoomed)}
	pw := PageWidth(l.Height, format)
	left := 0.0
	for range max(pages, 0) {
		l.Pages = append(l.Pages, PageBox{Left: left, Width: pw})
		left += pw
	}
	return l
}

// ContentWidth is the total scrollable width.
func (l Layout) ContentWidth() float64 {
	if len(l.Pages) == 0 {
		return 0
	}
	return l.Pages[len(l.Pages)-1].Right()
}

// Page returns box of the page and whether it exists.
func (l Layout) Page(i int) (PageBox, bool) {
	if i < 0 || i >= len(l.Pages) {
		return PageBox{}, false
	}
	return l.Pages[i], true
}
