package score

import "sort"

// walkLimit is the number of single steps cursor makes before resolving the
// rest of a long jump with binary search.
const walkLimit = 32

// Cursor remembers last located event between lookups. Under steady playback
// time moves by small increments from frame to frame, so starting from the
// previous position makes lookup O(1) amortized. Each consumer owns its own
// cursor, zero value is ready to use.
type Cursor struct {
	pos int
}

// Pos returns last located event index, -1 when time was before the first
// event.
func (c *Cursor) Pos() int {
	return c.pos
}

// Reset puts cursor back to the beginning, use when index is replaced.
func (c *Cursor) Reset() {
	c.pos = 0
}

// CurrentEventID returns id of the event whose time window contains t. Event
// i owns [events[i].Time, events[i+1].Time), the last one owns everything
// after its time. ok is false when t is nil, index is empty or t is before
// the first event. Cursor is updated as a side effect.
func (idx *Index) CurrentEventID(t *float64, c *Cursor) (string, bool) {
	if t == nil || idx.Empty() {
		return "", false
	}
	i := c.locate(idx.Events, *t, idx.sorted)
	if i < 0 {
		return "", false
	}
	return idx.Events[i].ElID, true
}

// locate walks back while t is before the event at cursor, then forward
// while t reached the next event. Walking below zero means "no event" and is
// remembered as -1.
func (c *Cursor) locate(events []Event, t float64, sorted bool) int {
	n := len(events)
	i := c.pos
	if i < 0 || i >= n {
		i = 0
	}

	steps := 0
	for i >= 0 && t < events[i].Time {
		i--
		if steps++; steps > walkLimit && sorted {
			c.pos = search(events, t)
			return c.pos
		}
	}
	for i < n-1 && t >= events[i+1].Time {
		i++
		if steps++; steps > walkLimit && sorted {
			c.pos = search(events, t)
			return c.pos
		}
	}
	c.pos = i
	return i
}

// search returns the last event with time not after t, for sorted events
// this is exactly where the walk ends.
func search(events []Event, t float64) int {
	return sort.Search(len(events), func(k int) bool { return events[k].Time > t }) - 1
}
