package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"

	"scorewd/common"
)

// Encode writes image in requested format. Positive dpi is stored in JPEG
// header.
func Encode(img image.Image, format common.OutputFmt, jpegQuality, dpi int) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	switch format {
	case common.OutputFmtJpeg:
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	default:
		err = imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	}
	if err != nil {
		return nil, err
	}
	if format == common.OutputFmtJpeg && dpi > 0 {
		return withJFIFDensity(buf.Bytes(), dpi)
	}
	return buf.Bytes(), nil
}

// Sheet lays out page thumbnails in a grid, pages are scaled to thumbnail
// width keeping aspect, row height is the tallest thumbnail.
func Sheet(pages []image.Image, columns, thumbWidth int) *image.NRGBA {
	const gap = 8

	if len(pages) == 0 || columns <= 0 || thumbWidth <= 0 {
		return imaging.New(1, 1, color.White)
	}
	columns = min(columns, len(pages))

	thumbs := make([]*image.NRGBA, len(pages))
	cellH := 0
	for i, p := range pages {
		thumbs[i] = imaging.Resize(p, thumbWidth, 0, imaging.Lanczos)
		cellH = max(cellH, thumbs[i].Bounds().Dy())
	}
	rows := (len(pages) + columns - 1) / columns

	sheet := imaging.New(gap+columns*(thumbWidth+gap), gap+rows*(cellH+gap), color.White)
	for i, t := range thumbs {
		x := gap + (i%columns)*(thumbWidth+gap)
		y := gap + (i/columns)*(cellH+gap)
		sheet = imaging.Paste(sheet, t, image.Pt(x, y))
	}
	return sheet
}
