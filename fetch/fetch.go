// Package fetch retrieves score files from wherever the score directory
// lives: a web server, a local directory or a zip bundle.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"scorewd/config"
)

// Score directory layout as produced by the exporter.
const (
	MetaName      = "meta.metajson"
	PositionsName = "measures.mpos"
	AudioName     = "audio.ogg"
	AltAudioName  = "audio-alt.ogg"
)

// PageName returns name of the page graphic, page is zero based while file
// names are numbered from 1.
func PageName(page int) string {
	return fmt.Sprintf("graphic-%d.svg", page+1)
}

// Fetcher returns raw content of score files by name. Implementations must be
// safe for concurrent use, loader keeps several requests in flight.
type Fetcher interface {
	// Locate returns unique location of the named file. It is used as media
	// source and as cache key, so it includes version code when set.
	Locate(name string) string
	Fetch(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// StatusError is returned for non successful HTTP responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// New selects fetcher for the source: http(s) URL, zip bundle or directory.
// Remote sources are wrapped with persistent cache when enabled. cp is used
// for non UTF-8 names inside zip bundles and may be nil.
func New(source string, cfg *config.SourceConfig, cp encoding.Encoding, log *zap.Logger) (Fetcher, error) {
	log = log.Named("fetch")

	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		f, err := NewHTTP(source, cfg, log)
		if err != nil {
			return nil, err
		}
		if !cfg.Cache.Enable {
			return f, nil
		}
		c, err := NewCache(f, cfg.Cache.Path, log)
		if err != nil {
			// cache is optional, run without it
			log.Warn("Unable to open page cache, continuing without it", zap.String("path", cfg.Cache.Path), zap.Error(err))
			return f, nil
		}
		return c, nil
	case strings.HasSuffix(lower, ".zip"):
		return NewBundle(source, cp, log)
	default:
		return NewDir(source, log)
	}
}
