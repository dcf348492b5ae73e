package viewer

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"scorewd/common"
	"scorewd/config"
	"scorewd/fetch"
	"scorewd/playback"
)

const testMpos = `<score>
  <elements>
    <element id="m1" x="0" y="0" sx="1200" sy="1200" page="0"/>
    <element id="m2" x="1200" y="0" sx="1200" sy="1200" page="0"/>
    <element id="m3" x="0" y="0" sx="1200" sy="1200" page="2"/>
  </elements>
  <events>
    <event elid="m1" position="0"/>
    <event elid="m2" position="2000"/>
    <event elid="m3" position="4000"/>
    <event elid="m1" position="6000"/>
    <event elid="m2" position="8000"/>
  </events>
</score>`

const testMeta = `{"metadata":{"title":"Test Song","pages":3,"pageFormat":{"width":1,"height":1}}}`

type memFetcher struct {
	name   string
	files  map[string]string
	gate   chan struct{}
	closed atomic.Bool
}

func (f *memFetcher) Locate(name string) string {
	return "mem://" + f.name + "/" + name
}

func (f *memFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	data, ok := f.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func (f *memFetcher) Close() error {
	f.closed.Store(true)
	return nil
}

type testMedia struct {
	src      string
	time     float64
	paused   bool
	duration float64
	notify   func(string)
}

func (m *testMedia) OnReady(fn func(string)) { m.notify = fn }
func (m *testMedia) SetSrc(src string)       { m.src = src }
func (m *testMedia) Src() string             { return m.src }
func (m *testMedia) Load() {
	m.time, m.paused = 0, true
	if m.notify != nil && m.src != "" {
		m.notify(m.src)
	}
}
func (m *testMedia) Play() error              { m.paused = false; return nil }
func (m *testMedia) Pause()                   { m.paused = true }
func (m *testMedia) CurrentTime() float64     { return m.time }
func (m *testMedia) SetCurrentTime(t float64) { m.time = t }
func (m *testMedia) Duration() float64        { return m.duration }
func (m *testMedia) Paused() bool             { return m.paused }
func (m *testMedia) Ended() bool              { return false }
func (m *testMedia) Buffered() []playback.TimeRange {
	return []playback.TimeRange{{Start: 0, End: m.duration}}
}

func testConfig() *config.Config {
	return &config.Config{
		Loader:   config.LoaderConfig{MaxInFlight: 3, RetryCooldown: 10 * time.Millisecond},
		Playback: config.PlaybackConfig{FrameRate: 60, SkipStep: 2 * time.Second, AltTrack: true},
		View:     config.ViewConfig{ViewportWidth: 1280, WindowHeight: 900, AutoScroll: true},
	}
}

func scoreFiles() map[string]string {
	return map[string]string{
		fetch.MetaName:      testMeta,
		fetch.PositionsName: testMpos,
		fetch.PageName(0):   "<svg>1</svg>",
		fetch.PageName(1):   "<svg>2</svg>",
		fetch.PageName(2):   "<svg>3</svg>",
	}
}

type harness struct {
	v        *Viewer
	main     *testMedia
	alt      *testMedia
	fetchers map[string]*memFetcher
}

func newHarness(t *testing.T, fetchers map[string]*memFetcher) *harness {
	t.Helper()
	h := &harness{
		main:     &testMedia{duration: 10, paused: true},
		alt:      &testMedia{duration: 10, paused: true},
		fetchers: fetchers,
	}
	open := func(source string) (fetch.Fetcher, error) {
		f, ok := h.fetchers[source]
		if !ok {
			return nil, errors.New("unknown source")
		}
		return f, nil
	}
	h.v = NewWithMedia(context.Background(), testConfig(), open, h.main, h.alt, zaptest.NewLogger(t))
	t.Cleanup(func() { h.v.Close() })
	return h
}

func frameUntil(t *testing.T, v *Viewer, cond func(FrameState) bool) FrameState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st := v.Frame(time.Now())
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached, last state %+v", st)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestViewer_LoadsScore(t *testing.T) {
	h := newHarness(t, map[string]*memFetcher{"song": {name: "song", files: scoreFiles()}})

	if err := h.v.SetSource("song"); err != nil {
		t.Fatal(err)
	}
	if h.main.src != "mem://song/audio.ogg" || h.alt.src != "mem://song/audio-alt.ogg" {
		t.Errorf("media sources = %q, %q", h.main.src, h.alt.src)
	}

	st := frameUntil(t, h.v, func(st FrameState) bool {
		return st.Loaded && st.Pages[common.PageStateLoaded] == 3
	})
	if st.Errored {
		t.Error("loaded score must not be errored")
	}
	if h.v.Meta().Title != "Test Song" {
		t.Errorf("title = %q", h.v.Meta().Title)
	}
	if len(h.v.Index().Events) != 5 {
		t.Errorf("events = %d", len(h.v.Index().Events))
	}
	if got := string(h.v.Page(2).Content); got != "<svg>3</svg>" {
		t.Errorf("page 3 content = %q", got)
	}
	if len(h.v.Layout().Pages) != 3 {
		t.Errorf("layout pages = %d", len(h.v.Layout().Pages))
	}
	if !st.Playback.Loaded {
		t.Error("media must be ready")
	}

	// same source is a no-op
	sess := h.v.Session()
	if err := h.v.SetSource("song"); err != nil || h.v.Session() != sess {
		t.Error("same source must keep session")
	}
}

func TestViewer_HighlightAndSelect(t *testing.T) {
	h := newHarness(t, map[string]*memFetcher{"song": {name: "song", files: scoreFiles()}})
	h.v.SetSource("song")
	frameUntil(t, h.v, func(st FrameState) bool {
		return st.Loaded && len(h.v.Index().Events) > 0 && st.Playback.Loaded
	})

	h.v.PlayPause()
	h.main.time = 2.5
	st := h.v.Frame(time.Now())
	if st.Highlight != "m2" || !st.HighlightChanged {
		t.Fatalf("highlight = %q changed %v", st.Highlight, st.HighlightChanged)
	}
	if st.Time == nil || *st.Time != 2.5 {
		t.Errorf("time = %v", st.Time)
	}
	if st.ScrollTarget != nil {
		t.Error("first page is visible, no scroll expected")
	}

	st = h.v.Frame(time.Now())
	if st.HighlightChanged {
		t.Error("same element must not be reported as changed")
	}

	// element on the third page, partially out of view
	h.main.time = 4.5
	st = h.v.Frame(time.Now())
	if st.Highlight != "m3" || st.ScrollTarget == nil {
		t.Fatalf("highlight = %q scroll target %v", st.Highlight, st.ScrollTarget)
	}

	// m1 is played at 0s and 6s, nearest to 4.5s wins
	if !h.v.Select("m1") {
		t.Fatal("Select(m1) failed")
	}
	if h.main.time != 6 {
		t.Errorf("seek position = %v, want 6", h.main.time)
	}
	if h.v.Select("nope") {
		t.Error("Select of unknown element must fail")
	}

	h.v.Skip(+1)
	if h.main.time != 8 {
		t.Errorf("after skip = %v, want 8", h.main.time)
	}
	h.v.Skip(-1)
	h.v.Skip(-1)
	if h.main.time != 4 {
		t.Errorf("after skip back = %v, want 4", h.main.time)
	}

	h.v.ToggleAltTrack()
	if h.alt.time != 4 || h.alt.paused || !h.main.paused {
		t.Errorf("alt toggle: time %v paused %v main paused %v", h.alt.time, h.alt.paused, h.main.paused)
	}

	h.v.Stop()
	st = h.v.Frame(time.Now())
	if st.Time != nil || st.Highlight != "" {
		t.Errorf("after stop time = %v highlight %q", st.Time, st.Highlight)
	}
}

func TestViewer_MetadataFailure(t *testing.T) {
	broken := scoreFiles()
	broken[fetch.MetaName] = `{"title":"no pages"}`
	missing := scoreFiles()
	delete(missing, fetch.MetaName)

	h := newHarness(t, map[string]*memFetcher{
		"broken":  {name: "broken", files: broken},
		"missing": {name: "missing", files: missing},
		"good":    {name: "good", files: scoreFiles()},
	})

	for _, src := range []string{"broken", "missing"} {
		if err := h.v.SetSource(src); err != nil {
			t.Fatal(err)
		}
		st := frameUntil(t, h.v, func(st FrameState) bool { return st.Errored })
		if st.Loaded || st.Pages != [4]int{} {
			t.Errorf("%s: errored viewer state %+v", src, st)
		}
		if !errors.Is(h.v.Err(), ErrMetadata) {
			t.Errorf("%s: Err() = %v, want ErrMetadata", src, h.v.Err())
		}
	}

	h.v.SetSource("good")
	st := h.v.Frame(time.Now())
	if st.Errored || h.v.Err() != nil {
		t.Error("new source must clear errored state")
	}
	frameUntil(t, h.v, func(st FrameState) bool { return st.Loaded })
	if !h.fetchers["broken"].closed.Load() || !h.fetchers["missing"].closed.Load() {
		t.Error("previous sources must be closed")
	}
}

func TestViewer_UnknownSource(t *testing.T) {
	h := newHarness(t, map[string]*memFetcher{})
	err := h.v.SetSource("nowhere")
	if !errors.Is(err, ErrMetadata) {
		t.Fatalf("SetSource() error = %v", err)
	}
	if st := h.v.Frame(time.Now()); !st.Errored {
		t.Error("viewer must be errored")
	}
	if h.v.Select("m1") {
		t.Error("Select without score must fail")
	}
}

func TestViewer_StaleSourceIgnored(t *testing.T) {
	slow := &memFetcher{name: "slow", files: scoreFiles(), gate: make(chan struct{})}
	fastFiles := scoreFiles()
	fastFiles[fetch.MetaName] = `{"title":"Fast","pages":1,"pageFormat":{"width":1,"height":1}}`
	fastFiles[fetch.PositionsName] = `<score/>`
	fast := &memFetcher{name: "fast", files: fastFiles}

	h := newHarness(t, map[string]*memFetcher{"slow": slow, "fast": fast})

	h.v.SetSource("slow")
	h.v.Frame(time.Now())
	h.v.SetSource("fast")
	close(slow.gate)

	frameUntil(t, h.v, func(st FrameState) bool {
		return st.Loaded && st.Pages[common.PageStateLoaded] == 1
	})
	// let slow results arrive and be dropped
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		h.v.Frame(time.Now())
		time.Sleep(time.Millisecond)
	}
	if h.v.Meta().Title != "Fast" || h.v.Meta().Pages != 1 {
		t.Errorf("meta = %+v", h.v.Meta())
	}
	if !h.v.Index().Empty() {
		t.Error("positions of the old source leaked into new one")
	}
	if len(h.v.PageStates()) != 1 {
		t.Errorf("page states = %v", h.v.PageStates())
	}
}

func TestViewer_SwitchCachedSourcesWithPagesInFlight(t *testing.T) {
	files := scoreFiles()
	gate := make(chan struct{})
	started := make(chan struct{}, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		src, name := path.Split(strings.TrimPrefix(r.URL.Path, "/"))
		data, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if src == "first/" && strings.HasSuffix(name, ".svg") {
			started <- struct{}{}
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		w.Write([]byte(data))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Source = config.SourceConfig{
		RequestTimeout: 5 * time.Second,
		Cache:          config.CacheConfig{Enable: true, Path: filepath.Join(t.TempDir(), "pages.db")},
	}
	log := zaptest.NewLogger(t)
	open := func(source string) (fetch.Fetcher, error) {
		return fetch.New(source, &cfg.Source, nil, log)
	}
	main := &testMedia{duration: 10, paused: true}
	v := NewWithMedia(context.Background(), cfg, open, main, nil, log)
	defer v.Close()

	if err := v.SetSource(srv.URL + "/first"); err != nil {
		t.Fatal(err)
	}
	frameUntil(t, v, func(st FrameState) bool { return st.Loaded })
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("page requests of the first source never reached server")
	}

	// closes cache of the first source while its page fetches are blocked
	if err := v.SetSource(srv.URL + "/second"); err != nil {
		t.Fatal(err)
	}
	close(gate)

	frameUntil(t, v, func(st FrameState) bool {
		return st.Loaded && st.Pages[common.PageStateLoaded] == 3
	})
	// stale completions land on closed cache and must be dropped
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		st := v.Frame(time.Now())
		if st.Errored || st.Pages[common.PageStateLoaded] != 3 {
			t.Fatalf("state after stale completions %+v", st)
		}
		time.Sleep(time.Millisecond)
	}
	if got := string(v.Page(0).Content); got != "<svg>1</svg>" {
		t.Errorf("page 1 content = %q", got)
	}
}

func TestViewer_ReenableAutoScroll(t *testing.T) {
	h := newHarness(t, map[string]*memFetcher{"song": {name: "song", files: scoreFiles()}})
	h.v.SetSource("song")
	frameUntil(t, h.v, func(st FrameState) bool {
		return st.Loaded && len(h.v.Index().Events) > 0 && st.Playback.Loaded
	})

	if h.v.ToggleAutoScroll() {
		t.Fatal("auto scroll must be disabled by toggle")
	}
	h.v.PlayPause()
	h.main.time = 4.5
	st := h.v.Frame(time.Now())
	if st.Highlight != "m3" || st.ScrollTarget != nil || st.ScrollLeft != 0 {
		t.Fatalf("disabled: highlight %q target %v scroll %v", st.Highlight, st.ScrollTarget, st.ScrollLeft)
	}

	// highlight stays on m3, enabling alone has to bring its page into view
	if !h.v.ToggleAutoScroll() {
		t.Fatal("auto scroll must be enabled by toggle")
	}
	st = h.v.Frame(time.Now())
	if st.HighlightChanged || st.ScrollLeft <= 0 {
		t.Errorf("enabled: changed %v scroll %v", st.HighlightChanged, st.ScrollLeft)
	}
}
