// Package render turns score page graphics into raster images: pages are
// cleaned up, optionally highlighted at a measure and encoded as PNG or JPEG.
package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// ViewBox is the page coordinate system, score element positions are
// expressed in it.
type ViewBox struct {
	MinX, MinY, W, H float64
}

// Page is cleaned up page graphic.
type Page struct {
	doc     *etree.Document
	ViewBox ViewBox
}

func parseViewBox(s string) (ViewBox, error) {
	f := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(f) != 4 {
		return ViewBox{}, fmt.Errorf("bad viewBox %q", s)
	}
	var v [4]float64
	for i := range f {
		n, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return ViewBox{}, fmt.Errorf("bad viewBox %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return ViewBox{}, fmt.Errorf("empty viewBox %q", s)
	}
	return ViewBox{MinX: v[0], MinY: v[1], W: v[2], H: v[3]}, nil
}

// ParsePage parses page graphic produced by the notation program and removes
// what should not be displayed: document title (browsers show it as a
// tooltip) and opaque white page background, so highlight drawn under the
// page stays visible.
func ParsePage(data []byte) (*Page, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{CharsetReader: charset.NewReaderLabel}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("unable to parse page graphic: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return nil, errors.New("page graphic has no svg root")
	}

	if title := root.SelectElement("title"); title != nil {
		root.RemoveChild(title)
	}
	removeBackground(root)

	p := &Page{doc: doc}
	if vb := root.SelectAttrValue("viewBox", ""); len(vb) > 0 {
		v, err := parseViewBox(vb)
		if err != nil {
			return nil, err
		}
		p.ViewBox = v
	} else {
		// fall back to declared size
		w, _ := strconv.ParseFloat(strings.TrimSuffix(root.SelectAttrValue("width", "0"), "px"), 64)
		h, _ := strconv.ParseFloat(strings.TrimSuffix(root.SelectAttrValue("height", "0"), "px"), 64)
		if w <= 0 || h <= 0 {
			return nil, errors.New("page graphic has neither viewBox nor size")
		}
		p.ViewBox = ViewBox{W: w, H: h}
		root.CreateAttr("viewBox", fmt.Sprintf("0 0 %g %g", w, h))
	}
	return p, nil
}

// removeBackground drops white filled path directly following desc element
// anywhere in the document.
func removeBackground(el *etree.Element) {
	children := el.ChildElements()
	for i, c := range children {
		if c.Tag == "desc" && i+1 < len(children) {
			next := children[i+1]
			if next.Tag == "path" && strings.EqualFold(next.SelectAttrValue("fill", ""), "#ffffff") {
				el.RemoveChild(next)
				removeBackground(el)
				return
			}
		}
	}
	for _, c := range children {
		removeBackground(c)
	}
}

// Inner returns markup of the page content without svg wrapper.
func (p *Page) Inner() string {
	var sb strings.Builder
	for _, tok := range p.doc.Root().Child {
		switch t := tok.(type) {
		case *etree.Element:
			d := etree.NewDocument()
			d.SetRoot(t.Copy())
			if s, err := d.WriteToString(); err == nil {
				sb.WriteString(s)
			}
		case *etree.CharData:
			if strings.TrimSpace(t.Data) == "" {
				sb.WriteString(t.Data)
			}
		}
	}
	return sb.String()
}

// Bytes serializes cleaned page.
func (p *Page) Bytes() ([]byte, error) {
	return p.doc.WriteToBytes()
}
