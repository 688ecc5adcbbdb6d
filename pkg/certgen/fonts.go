package certgen

import (
	"github.com/Alexmavl/Generador-Certificados/pkg/layout"
)

// Face is a PDF core font as fpdf names it.
type Face struct {
	Family string // fpdf family ("Helvetica", "Times", "Courier")
	Style  string // fpdf style ("", "B", "I", "BI")
}

// DefaultFace is used for any family/style pair outside the font table.
var DefaultFace = Face{Family: "Helvetica", Style: ""}

// fontTable maps every supported family and style to its core font.
var fontTable = map[layout.FontFamily]map[layout.FontStyle]Face{
	layout.Helvetica: {
		layout.Normal:     {"Helvetica", ""},
		layout.Bold:       {"Helvetica", "B"},
		layout.Italic:     {"Helvetica", "I"},
		layout.BoldItalic: {"Helvetica", "BI"},
	},
	layout.TimesRoman: {
		layout.Normal:     {"Times", ""},
		layout.Bold:       {"Times", "B"},
		layout.Italic:     {"Times", "I"},
		layout.BoldItalic: {"Times", "BI"},
	},
	layout.Courier: {
		layout.Normal:     {"Courier", ""},
		layout.Bold:       {"Courier", "B"},
		layout.Italic:     {"Courier", "I"},
		layout.BoldItalic: {"Courier", "BI"},
	},
}

// ResolveFace looks up a family and style. An empty family or style means
// Helvetica or Normal; anything else outside the table resolves to DefaultFace.
func ResolveFace(family layout.FontFamily, style layout.FontStyle) Face {
	if family == "" {
		family = layout.Helvetica
	}
	if style == "" {
		style = layout.Normal
	}
	if face, ok := fontTable[family][style]; ok {
		return face
	}
	return DefaultFace
}

type fontKey struct {
	family layout.FontFamily
	style  layout.FontStyle
}

// FontCache memoizes font resolution for one document instance. The embed
// callback runs once per distinct pair so the font is added to that document
// exactly once. A FontCache must not outlive or be shared across documents.
type FontCache struct {
	embed func(Face)
	faces map[fontKey]Face
}

func newFontCache(embed func(Face)) *FontCache {
	return &FontCache{embed: embed, faces: make(map[fontKey]Face)}
}

// Get returns the face for a family/style pair, embedding it on first use.
func (c *FontCache) Get(family layout.FontFamily, style layout.FontStyle) Face {
	key := fontKey{family, style}
	if face, ok := c.faces[key]; ok {
		return face
	}
	face := ResolveFace(family, style)
	if c.embed != nil {
		c.embed(face)
	}
	c.faces[key] = face
	return face
}
