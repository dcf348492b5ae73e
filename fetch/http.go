package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"scorewd/config"
)

type httpFetcher struct {
	base    *url.URL
	version string
	token   config.SecretString
	client  *http.Client
	log     *zap.Logger
}

// NewHTTP returns fetcher for score directory served over HTTP. Source may
// be given with or without trailing slash.
func NewHTTP(source string, cfg *config.SourceConfig, log *zap.Logger) (Fetcher, error) {
	base, err := url.Parse(strings.TrimRight(source, "/"))
	if err != nil {
		return nil, fmt.Errorf("bad source url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("bad source url %q: no host", source)
	}
	// query of the source itself is replaced by version code
	base.RawQuery, base.Fragment = "", ""

	return &httpFetcher{
		base:    base,
		version: cfg.VersionCode,
		token:   cfg.AuthToken,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		log:     log,
	}, nil
}

func (f *httpFetcher) Locate(name string) string {
	u := f.base.JoinPath(name)
	if len(f.version) > 0 {
		u.RawQuery = url.Values{"v": []string{f.version}}.Encode()
	}
	return u.String()
}

func (f *httpFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	loc := f.Locate(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, err
	}
	if token := f.token.Reveal(); len(token) > 0 {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so connection could be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: loc, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	f.log.Debug("Fetched", zap.String("url", loc), zap.Int("size", len(data)))
	return data, nil
}

func (f *httpFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
