package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/text/encoding"
)

// BundleMarker is the file which identifies score directory inside bundle.
const BundleMarker = "meta.metajson"

// Bundle is a score directory packed into zip archive. Exporter produces
// "<score>.mscz.wd/" directories, zipping them usually keeps that directory
// as a single top level entry, so the score root is located by marker file
// rather than assumed to be archive root.
type Bundle struct {
	r     *zip.ReadCloser
	root  string
	files map[string]*zip.File
}

// OpenBundle opens zip archive and indexes score files. When cp is not nil
// non UTF-8 entry names are decoded using it.
func OpenBundle(name string, cp encoding.Encoding) (*Bundle, error) {
	r, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}

	b := &Bundle{r: r, files: make(map[string]*zip.File)}
	roots := []string{}
	err = walk(&r.Reader, "", func(f *zip.File) error {
		n := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			if decoded, err := cp.NewDecoder().String(n); err == nil {
				n = decoded
			}
		}
		b.files[n] = f
		if path.Base(n) == BundleMarker {
			roots = append(roots, path.Dir(n))
		}
		return nil
	})
	if err != nil {
		r.Close()
		return nil, err
	}
	if len(roots) == 0 {
		r.Close()
		return nil, fmt.Errorf("%s not found in %s", BundleMarker, name)
	}
	// shortest path wins when bundle contains several scores
	sort.Slice(roots, func(i, j int) bool { return len(roots[i]) < len(roots[j]) })
	if b.root = roots[0]; b.root == "." {
		b.root = ""
	}
	return b, nil
}

// Close releases underlying archive.
func (b *Bundle) Close() error {
	if b == nil || b.r == nil {
		return nil
	}
	return b.r.Close()
}

// Root returns score directory path inside archive ("" for archive root).
func (b *Bundle) Root() string {
	return b.root
}

// ReadFile returns content of the file relative to score root.
func (b *Bundle) ReadFile(name string) ([]byte, error) {
	f, ok := b.files[path.Join(b.root, name)]
	if !ok {
		return nil, fmt.Errorf("bundle entry %q: %w", name, fs.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return data, nil
}

// Names returns file names relative to score root in natural order, so
// "graphic-2.svg" comes before "graphic-10.svg".
func (b *Bundle) Names() []string {
	prefix := ""
	if b.root != "" {
		prefix = b.root + "/"
	}
	names := make([]string, 0, len(b.files))
	for n := range b.files {
		if rel, ok := strings.CutPrefix(n, prefix); ok && !strings.Contains(rel, "/") {
			names = append(names, rel)
		}
	}
	sort.Sort(natural.StringSlice(names))
	return slices.Clip(names)
}
