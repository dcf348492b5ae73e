// Package common holds enums shared between configuration and the score
// runtime packages. Keeping them here lets config depend on nothing from the
// runtime side.
package common

import (
	"fmt"
	"strings"
)

// PageState is the load state of a single page asset.
type PageState int

const (
	PageStateUnloaded PageState = iota
	PageStateLoading
	PageStateLoaded
	// PageStateFailed means the last fetch failed and the page waits for the
	// cooldown to expire before becoming Unloaded again.
	PageStateFailed
)

var pageStateNames = []string{"unloaded", "loading", "loaded", "failed"}

func (s PageState) String() string {
	if s < 0 || int(s) >= len(pageStateNames) {
		return fmt.Sprintf("PageState(%d)", int(s))
	}
	return pageStateNames[s]
}

// Track selects one of the two audio sources.
type Track int

const (
	TrackMain Track = iota
	TrackAlt
)

func (t Track) String() string {
	switch t {
	case TrackMain:
		return "main"
	case TrackAlt:
		return "alt"
	default:
		return fmt.Sprintf("Track(%d)", int(t))
	}
}

// Other returns the opposite track.
func (t Track) Other() Track {
	if t == TrackMain {
		return TrackAlt
	}
	return TrackMain
}

// OutputFmt is the image format for rendered pages.
type OutputFmt int

const (
	OutputFmtPng OutputFmt = iota
	OutputFmtJpeg
)

var outputFmtNames = []string{"png", "jpeg"}

func (o OutputFmt) String() string {
	if o < 0 || int(o) >= len(outputFmtNames) {
		return fmt.Sprintf("OutputFmt(%d)", int(o))
	}
	return outputFmtNames[o]
}

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtPng:
		return ".png"
	case OutputFmtJpeg:
		return ".jpg"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// OutputFmtNames returns list of supported format names.
func OutputFmtNames() []string {
	return append([]string(nil), outputFmtNames...)
}

// ParseOutputFmt converts name to OutputFmt, "jpg" is accepted as alias.
func ParseOutputFmt(name string) (OutputFmt, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "png":
		return OutputFmtPng, nil
	case "jpeg", "jpg":
		return OutputFmtJpeg, nil
	}
	return OutputFmtPng, fmt.Errorf("%q is not a valid OutputFmt, try [%s]", name, strings.Join(outputFmtNames, ", "))
}

// MarshalText implements encoding.TextMarshaler so formats can live in YAML.
func (o OutputFmt) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *OutputFmt) UnmarshalText(text []byte) error {
	v, err := ParseOutputFmt(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
