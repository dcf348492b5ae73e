package score

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PageFormat is the page aspect as exported by the notation program, units
// do not matter, only ratio is used.
type PageFormat struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	TwoSided bool    `json:"twosided,omitempty"`
}

// Meta is the score metadata document ("meta.metajson").
type Meta struct {
	Title      string     `json:"title,omitempty"`
	Subtitle   string     `json:"subtitle,omitempty"`
	Composer   string     `json:"composer,omitempty"`
	Lyricist   string     `json:"lyricist,omitempty"`
	Pages      int        `json:"pages"`
	Measures   int        `json:"measures,omitempty"`
	Duration   float64    `json:"duration,omitempty"`
	PageFormat PageFormat `json:"pageFormat"`
}

// Aspect returns page width to height ratio.
func (m *Meta) Aspect() float64 {
	return m.PageFormat.Width / m.PageFormat.Height
}

// ParseMeta decodes score metadata. Newer exporters wrap everything into
// "metadata" object, older ones put fields at top level - both are accepted.
func ParseMeta(data []byte) (*Meta, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("unable to decode metadata: %w", err)
	}

	raw := json.RawMessage(data)
	if _, ok := probe["pages"]; !ok {
		if inner, ok := probe["metadata"]; ok {
			raw = inner
		}
	}

	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unable to decode metadata: %w", err)
	}
	if meta.Pages <= 0 {
		return nil, errors.New("metadata has no pages")
	}
	if meta.PageFormat.Width <= 0 || meta.PageFormat.Height <= 0 {
		return nil, fmt.Errorf("metadata has invalid page format %gx%g", meta.PageFormat.Width, meta.PageFormat.Height)
	}
	return &meta, nil
}
