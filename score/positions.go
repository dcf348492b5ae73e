// Package score holds everything derived from score documents: the timed
// events and positioned elements of a position-reference document, score
// metadata and the time lookups used during playback.
package score

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const (
	// PosScale converts position document raw units into page graphic units.
	PosScale = 12.0
	// MinElementWidth is the floor for element width, narrow elements are
	// widened in place to remain clickable.
	MinElementWidth = 64.0
)

// Event is a timestamped marker tied to one score element.
type Event struct {
	ElID string
	Time float64 // seconds
}

type Point struct {
	X, Y float64
}

type Size struct {
	W, H float64
}

// Element is a positioned, sized region on a page corresponding to a musical
// unit (usually a measure).
type Element struct {
	ElID string
	Pos  Point
	Size Size
	Page int
}

// Index is the parsed position-reference document. It is read-only after
// parse and may be shared, lookup state lives in Cursor.
type Index struct {
	Events   []Event
	Elements map[string]*Element

	// order keeps element ids in document order.
	order []string
	// sorted is true when events are in non-decreasing time order, only
	// then Cursor is allowed to shortcut long walks with binary search.
	sorted bool
}

// Empty reports whether index has no events to follow.
func (idx *Index) Empty() bool {
	return idx == nil || len(idx.Events) == 0
}

// ParsePositions parses position-reference document text. It never fails:
// absent or malformed document produces an empty index, which is a valid
// inert state for the callers.
func ParsePositions(text string, log *zap.Logger) *Index {
	idx := &Index{Elements: make(map[string]*Element), sorted: true}
	if len(strings.TrimSpace(text)) == 0 {
		return idx
	}

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if err := doc.ReadFromString(text); err != nil {
		log.Warn("Unable to parse position document, ignoring", zap.Error(err))
		return idx
	}
	if doc.Root() == nil {
		log.Warn("Position document has no root element, ignoring")
		return idx
	}

	for _, el := range doc.FindElements("//element") {
		element, ok := parseElement(el, log)
		if !ok {
			continue
		}
		if _, exists := idx.Elements[element.ElID]; !exists {
			idx.order = append(idx.order, element.ElID)
		}
		idx.Elements[element.ElID] = element
	}

	for _, el := range doc.FindElements("//event") {
		pos, err := strconv.ParseFloat(strings.TrimSpace(el.SelectAttrValue("position", "0")), 64)
		if err != nil || math.IsNaN(pos) || math.IsInf(pos, 0) {
			log.Warn("Bad event position, skipping", zap.String("elid", el.SelectAttrValue("elid", "")), zap.Error(err))
			continue
		}
		ev := Event{ElID: el.SelectAttrValue("elid", ""), Time: pos / 1000}
		if n := len(idx.Events); n > 0 && ev.Time < idx.Events[n-1].Time {
			idx.sorted = false
		}
		idx.Events = append(idx.Events, ev)
	}

	if !idx.sorted {
		log.Debug("Position document events are out of order, cursor will only walk")
	}
	log.Debug("Position document parsed", zap.Int("events", len(idx.Events)), zap.Int("elements", len(idx.Elements)))
	return idx
}

func parseElement(el *etree.Element, log *zap.Logger) (*Element, bool) {
	id := el.SelectAttrValue("id", "")
	if len(id) == 0 {
		log.Debug("Element without id, skipping")
		return nil, false
	}

	var vals [4]float64
	for i, name := range []string{"x", "y", "sx", "sy"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(el.SelectAttrValue(name, "0")), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			log.Warn("Bad element geometry, skipping", zap.String("id", id), zap.String("attr", name), zap.Error(err))
			return nil, false
		}
		vals[i] = v / PosScale
	}

	page, err := strconv.Atoi(strings.TrimSpace(el.SelectAttrValue("page", "0")))
	if err != nil || page < 0 {
		log.Warn("Bad element page, skipping", zap.String("id", id), zap.Error(err))
		return nil, false
	}

	element := &Element{
		ElID: id,
		Pos:  Point{X: vals[0], Y: vals[1]},
		Size: Size{W: vals[2], H: vals[3]},
		Page: page,
	}
	// widen in place, position stays
	if element.Size.W < MinElementWidth {
		element.Size.W = MinElementWidth
	}
	return element, true
}

// EventTimesForElement returns times of all events referring to the element
// in document order. Element may be played several times (repeats).
func (idx *Index) EventTimesForElement(elid string) []float64 {
	if idx == nil {
		return nil
	}
	var times []float64
	for _, ev := range idx.Events {
		if ev.ElID == elid {
			times = append(times, ev.Time)
		}
	}
	return times
}

// ElementsOnPage returns clickable elements of the page in document order.
func (idx *Index) ElementsOnPage(page int) []*Element {
	if idx == nil {
		return nil
	}
	var res []*Element
	for _, id := range idx.order {
		if e := idx.Elements[id]; e.Page == page {
			res = append(res, e)
		}
	}
	return res
}

// HighlightOnPage returns element to be highlighted on the page, nil when
// element is unknown or belongs to a different page.
func (idx *Index) HighlightOnPage(elid string, page int) *Element {
	if idx == nil {
		return nil
	}
	if e, ok := idx.Elements[elid]; ok && e.Page == page {
		return e
	}
	return nil
}
