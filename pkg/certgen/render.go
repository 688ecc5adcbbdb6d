package certgen

import (
	"fmt"

	"github.com/Alexmavl/Generador-Certificados/pkg/dataset"
	"github.com/Alexmavl/Generador-Certificados/pkg/layout"
)

// page is the drawing surface of one document instance. Coordinates are PDF
// user space: points, origin bottom-left.
type page interface {
	Size() (width, height float64)
	TextWidth(text string, face Face, size float64) float64
	DrawText(text string, x, y float64, face Face, size float64, color layout.Color)
	DrawImage(fieldID string, data []byte, info imageInfo, x, y, width, height float64) error
}

// renderer draws fields for one document instance.
type renderer struct {
	fonts      *FontCache  // Scoped to the document
	images     *ImageCache // Shared by the run
	fontSize   float64
	imageWidth float64
}

// render issues the draw operation for a single field on pg. Only image
// fields can fail, with an *ImageDecodeError; the caller records it and moves on.
func (r *renderer) render(field layout.Field, row dataset.Row, pg page) error {
	w, h := pg.Size()
	// Fields built in code may carry any position; keep them on the page.
	pos := layout.NewPosition(field.At().X, field.At().Y)
	px, py := ToPageCoordinates(pos.X, pos.Y, w, h)

	switch f := field.(type) {
	case layout.StaticText:
		r.drawText(pg, f.Content, f.TextStyle, px, py)
		return nil
	case layout.BoundText:
		// Absent and blank values both render as "".
		value, _ := row.Get(f.Column)
		r.drawText(pg, value, f.TextStyle, px, py)
		return nil
	case layout.Image:
		return r.drawImage(pg, f, px, py, w, h)
	}
	return fmt.Errorf("unsupported field type %T", field)
}

// drawText centers text horizontally on px; the baseline sits on py.
func (r *renderer) drawText(pg page, text string, style layout.TextStyle, px, py float64) {
	size := style.FontSize
	if size <= 0 {
		size = r.fontSize
	}
	face := r.fonts.Get(style.FontFamily, style.FontStyle)

	textWidth := pg.TextWidth(text, face, size)
	pg.DrawText(text, px-textWidth/2, py, face, size, style.Color)
}

// drawImage centers the image on (px, py) on both axes.
func (r *renderer) drawImage(pg page, f layout.Image, px, py, pageW, pageH float64) error {
	data, _ := r.images.Get(f.ID)
	info, err := probeImage(f.ID, data)
	if err != nil {
		return err
	}

	width := r.imageWidth
	if f.WidthPercent > 0 {
		width = (f.WidthPercent / 100) * pageW
	}
	height := width * float64(info.Height) / float64(info.Width)
	if f.HeightPercent > 0 {
		height = (f.HeightPercent / 100) * pageH
	}

	if err := pg.DrawImage(f.ID, data, info, px-width/2, py-height/2, width, height); err != nil {
		return &ImageDecodeError{FieldID: f.ID, Err: err}
	}
	return nil
}
