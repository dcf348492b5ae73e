package score

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"scorewd/utils/debug"
)

// String returns a readable tree of the index. It exists solely for manual
// inspection and debug reports.
func (idx *Index) String() string {
	if idx == nil {
		return "<nil Index>"
	}

	tw := debug.NewTreeWriter()
	tw.Line(0, "Events: %d (sorted: %t)", len(idx.Events), idx.sorted)
	for i, ev := range idx.Events {
		tw.Line(1, "Event[%d] elid[%q] time[%.3f]", i, ev.ElID, ev.Time)
	}

	tw.Line(0, "Elements: %d", len(idx.Elements))
	keys := slices.Collect(maps.Keys(idx.Elements))
	sort.Sort(natural.StringSlice(keys))
	for _, k := range keys {
		e := idx.Elements[k]
		tw.Line(1, "Element[%q] page[%d] pos[%.2f,%.2f] size[%.2fx%.2f] times%v",
			k, e.Page, e.Pos.X, e.Pos.Y, e.Size.W, e.Size.H, idx.EventTimesForElement(k))
	}
	return tw.String()
}

// String returns a readable tree of metadata.
func (m *Meta) String() string {
	if m == nil {
		return "<nil Meta>"
	}
	tw := debug.NewTreeWriter()
	tw.Line(0, "Meta")
	tw.TextBlock(1, "Title", m.Title)
	if len(m.Subtitle) > 0 {
		tw.TextBlock(1, "Subtitle", m.Subtitle)
	}
	if len(m.Composer) > 0 {
		tw.TextBlock(1, "Composer", m.Composer)
	}
	tw.Line(1, "Pages: %d", m.Pages)
	tw.Line(1, "PageFormat: %gx%g (aspect %.4f)", m.PageFormat.Width, m.PageFormat.Height, m.Aspect())
	if m.Duration > 0 {
		tw.Line(1, "Duration: %gs", m.Duration)
	}
	return tw.String()
}
