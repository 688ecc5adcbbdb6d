// Package layout describes where and how fields are placed on a certificate template.
//
// A layout is an ordered list of fields. Each field is one of three variants, resolved
// once when the layout is decoded:
//
// - StaticText: literal text drawn identically on every certificate
// - BoundText: text taken from a dataset column, resolved per row
// - Image: a PNG or JPEG overlay
//
// Positions are percentages of the template page (0-100, origin top-left) and name the
// visual center of the field, so a layout is independent of the template's page size.
//
// Main Functions:
//
// - Load / Decode: read a layout file (YAML or JSON)
// - DefaultFields: the two starter placeholders (student name and course duration)
// - AutoBind: bind the starter placeholders to matching dataset columns
package layout

import "math"

// Kind identifies the field variant.
type Kind int

const (
	KindStaticText Kind = iota
	KindBoundText
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindStaticText:
		return "static_text"
	case KindBoundText:
		return "bound_text"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// Field is one placeholder definition. The concrete types are StaticText, BoundText
// and Image; the field list order is the drawing order.
type Field interface {
	FieldID() string
	Kind() Kind
	At() Position
	isField()
}

// Position is the field's center as a percentage of page width (X) and height (Y).
type Position struct {
	X float64
	Y float64
}

// NewPosition clamps both coordinates to [0,100]. NaN becomes 0.
func NewPosition(x, y float64) Position {
	return Position{X: clampPercent(x), Y: clampPercent(y)}
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// FontFamily names one of the built-in font families.
type FontFamily string

const (
	Helvetica  FontFamily = "Helvetica"
	TimesRoman FontFamily = "Times-Roman"
	Courier    FontFamily = "Courier"
)

// FontFamilies lists the families in the order they are offered to users.
var FontFamilies = []FontFamily{Helvetica, TimesRoman, Courier}

// FontStyle is the weight/slant variant of a family.
type FontStyle string

const (
	Normal     FontStyle = "Normal"
	Bold       FontStyle = "Bold"
	Italic     FontStyle = "Italic"
	BoldItalic FontStyle = "BoldItalic"
)

// FontStyles lists the supported styles.
var FontStyles = []FontStyle{Normal, Bold, Italic, BoldItalic}

// TextStyle holds the attributes shared by both text variants.
// Unknown families or styles are kept as given; the renderer falls back to Helvetica.
type TextStyle struct {
	FontSize   float64    // Points; non-positive means the renderer default
	FontFamily FontFamily // One of FontFamilies
	FontStyle  FontStyle  // One of FontStyles
	Color      Color      // Zero value is black
}

// StaticText draws the same literal content on every certificate.
type StaticText struct {
	ID       string
	Label    string
	Position Position
	Content  string
	TextStyle
}

func (f StaticText) FieldID() string { return f.ID }
func (StaticText) Kind() Kind         { return KindStaticText }
func (f StaticText) At() Position     { return f.Position }
func (StaticText) isField()           {}

// BoundText draws the value of dataset column Column for each row.
// A missing or blank value renders as an empty string.
type BoundText struct {
	ID       string
	Label    string
	Position Position
	Column   string
	TextStyle
}

func (f BoundText) FieldID() string { return f.ID }
func (BoundText) Kind() Kind         { return KindBoundText }
func (f BoundText) At() Position     { return f.Position }
func (BoundText) isField()           {}

// Image overlays encoded PNG or JPEG bytes centered on Position.
type Image struct {
	ID            string
	Label         string
	Position      Position
	Source        []byte  // Raw encoded image
	WidthPercent  float64 // Percent of page width; 0 means renderer default width
	HeightPercent float64 // Percent of page height; 0 keeps the intrinsic aspect ratio
}

func (f Image) FieldID() string { return f.ID }
func (Image) Kind() Kind         { return KindImage }
func (f Image) At() Position     { return f.Position }
func (Image) isField()           {}
