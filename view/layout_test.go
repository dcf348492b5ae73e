package view

import (
	"testing"

	"scorewd/score"
)

func TestDisplayHeight(t *testing.T) {
	tests := []struct {
		name        string
		width, winH float64
		zoomed      bool
		want        float64
	}{
		{"limited by window", 1280, 900, false, 740},
		{"limited by width", 500, 1200, false, 650},
		{"limited by max", 2000, 2000, false, 1200},
		{"zoomed width", 800, 300, true, 1160},
		{"zoomed max", 1280, 300, true, 1350},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayHeight(tt.width, tt.winH, tt.zoomed); got != tt.want {
				t.Errorf("DisplayHeight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPageWidth(t *testing.T) {
	a4 := score.PageFormat{Width: 210, Height: 297}
	if got := PageWidth(299, a4); got != 210 {
		t.Errorf("PageWidth(299) = %v, want 210", got)
	}
	if got := PageWidth(100, score.PageFormat{Width: 1}); got != 0 {
		t.Errorf("PageWidth() with zero height format = %v", got)
	}
	if got := PageWidth(1, a4); got != 0 {
		t.Errorf("PageWidth() below border = %v", got)
	}
}

func TestNewLayout(t *testing.T) {
	// 740 high strip, square pages 738 wide
	l := NewLayout(3, score.PageFormat{Width: 1, Height: 1}, 1280, 900, false)

	if l.Height != 740 || len(l.Pages) != 3 {
		t.Fatalf("layout = %+v", l)
	}
	for i, p := range l.Pages {
		if p.Left != float64(i)*738 || p.Width != 738 {
			t.Errorf("page %d = %+v", i, p)
		}
	}
	if l.ContentWidth() != 3*738 {
		t.Errorf("ContentWidth() = %v", l.ContentWidth())
	}
	if _, ok := l.Page(3); ok {
		t.Error("Page(3) must not exist")
	}
	if (Layout{}).ContentWidth() != 0 {
		t.Error("empty layout must have no width")
	}
}
