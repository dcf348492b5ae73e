package render

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"

	"scorewd/config"
	"scorewd/score"
)

// Values are available to output name template.
type Values struct {
	Context  string
	Title    string
	Subtitle string
	Composer string
	Source   string
	Page     int // 1 based, 0 for contact sheet
	Pages    int
	Measure  string
	Format   string
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sourceBase returns score name from source location: last path element
// without exporter ".mscz.wd" or bundle ".zip" suffixes.
func sourceBase(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	base := path.Base(strings.TrimRight(filepath.ToSlash(source), "/"))
	for _, ext := range []string{".zip", ".wd", ".mscz"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Namer builds output file names for rendered pages.
type Namer struct {
	cfg    *config.RenderConfig
	meta   *score.Meta
	source string
}

func NewNamer(cfg *config.RenderConfig, meta *score.Meta, source string) *Namer {
	return &Namer{cfg: cfg, meta: meta, source: source}
}

func (n *Namer) values(page int, measure string) Values {
	v := Values{
		Context: string(config.OutputNameTemplateFieldName),
		Source:  sourceBase(n.source),
		Page:    page,
		Measure: measure,
		Format:  n.cfg.Format.String(),
	}
	if n.meta != nil {
		v.Title, v.Subtitle, v.Composer, v.Pages = n.meta.Title, n.meta.Subtitle, n.meta.Composer, n.meta.Pages
	}
	return v
}

func (n *Namer) defaultName(v Values) string {
	base := v.Title
	if len(base) == 0 {
		base = v.Source
	}
	if v.Page == 0 {
		return base + "-sheet"
	}
	width := len(fmt.Sprint(max(v.Pages, 1)))
	name := fmt.Sprintf("%s-%0*d", base, width, v.Page)
	if len(v.Measure) > 0 {
		name += "-" + v.Measure
	}
	return name
}

func (n *Namer) clean(name string) string {
	if n.cfg.FileNameSlug {
		name = slug.Make(name)
	}
	return config.CleanFileName(name)
}

// Name returns file name (with extension) for zero based page, negative page
// names contact sheet. Template failure falls back to default naming.
func (n *Namer) Name(page int, measure string) (string, error) {
	v := n.values(page+1, measure)
	if page < 0 {
		v.Page = 0
	}

	name := n.defaultName(v)
	var err error
	if len(n.cfg.OutputNameTemplate) > 0 {
		var expanded string
		if expanded, err = expandTemplate(config.OutputNameTemplateFieldName, n.cfg.OutputNameTemplate, v); err == nil && len(strings.TrimSpace(expanded)) > 0 {
			name = expanded
		}
	}
	return n.clean(name) + n.cfg.Format.Ext(), err
}
