package certgen

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/Alexmavl/Generador-Certificados/pkg/layout"
)

// instance is one independent copy of the template, owned by a single row.
type instance interface {
	page
	embedFont(face Face)
	Bytes() ([]byte, error)
}

// document is an instance backed by fpdf with the template's first page
// imported as the background.
type document struct {
	pdf    *fpdf.Fpdf
	width  float64
	height float64
	images map[string]bool // Image names registered in this document
}

// openDocument parses the template afresh and places its first page on a new
// page of the same size. The importer panics on malformed input; that is
// returned as an error.
func openDocument(template []byte, width, height float64) (doc *document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to import template page: %v", r)
		}
	}()

	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("Generador-Certificados", true)
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})

	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(template))
	tpl := importer.ImportPageFromStream(pdf, &rs, 1, "/MediaBox")
	importer.UseImportedTemplate(pdf, tpl, 0, 0, width, height)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to prepare document: %w", err)
	}
	return &document{
		pdf:    pdf,
		width:  width,
		height: height,
		images: make(map[string]bool),
	}, nil
}

func (d *document) Size() (float64, float64) { return d.width, d.height }

// embedFont adds a core font to this document.
func (d *document) embedFont(face Face) {
	d.pdf.SetFont(face.Family, face.Style, 0)
}

func (d *document) TextWidth(text string, face Face, size float64) float64 {
	d.pdf.SetFont(face.Family, face.Style, size)
	encoded, _ := toWinAnsi(text)
	return d.pdf.GetStringWidth(encoded)
}

// DrawText writes text with its baseline at (x, y) in PDF user space. fpdf
// measures y from the top edge, hence the flip.
func (d *document) DrawText(text string, x, y float64, face Face, size float64, color layout.Color) {
	encoded, _ := toWinAnsi(text)
	d.pdf.SetFont(face.Family, face.Style, size)
	d.pdf.SetTextColor(int(color.R), int(color.G), int(color.B))
	d.pdf.Text(x, d.height-y, encoded)
}

// DrawImage places an image whose bottom-left corner is (x, y) in PDF user space.
// A failed registration is cleared so the rest of the document stays usable.
func (d *document) DrawImage(fieldID string, data []byte, info imageInfo, x, y, width, height float64) error {
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("document already failed: %w", err)
	}

	name := "field:" + fieldID
	opts := fpdf.ImageOptions{ImageType: info.Type, ReadDpi: false}
	if !d.images[name] {
		d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		if err := d.pdf.Error(); err != nil {
			d.pdf.ClearError()
			return fmt.Errorf("failed to embed image: %w", err)
		}
		d.images[name] = true
	}

	d.pdf.ImageOptions(name, x, d.height-y-height, width, height, false, opts, 0, "")
	if err := d.pdf.Error(); err != nil {
		d.pdf.ClearError()
		return fmt.Errorf("failed to draw image: %w", err)
	}
	return nil
}

// Bytes serializes the document. The document cannot be drawn on afterwards.
func (d *document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
