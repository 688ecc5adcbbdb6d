package layout

import (
	"strings"

	"github.com/gobwas/glob"
)

// IDs of the starter placeholders.
const (
	NamePlaceholderID  = "name_placeholder"
	HoursPlaceholderID = "hours_placeholder"
)

var (
	namePattern  = glob.MustCompile("*{nombre,name,student,alumno}*")
	hoursPattern = glob.MustCompile("*{duration,duracion,hours,horas,tiempo}*")
)

// DefaultFields returns the starter layout: the student name and the course
// duration, both unbound until AutoBind or the user assigns a column.
func DefaultFields() []Field {
	return []Field{
		StaticText{
			ID:       NamePlaceholderID,
			Label:    "Student Name",
			Position: Position{X: 50, Y: 45},
			TextStyle: TextStyle{
				FontSize:   24,
				FontFamily: Helvetica,
				FontStyle:  Bold,
				Color:      Black,
			},
		},
		StaticText{
			ID:       HoursPlaceholderID,
			Label:    "Course Duration",
			Position: Position{X: 50, Y: 55},
			TextStyle: TextStyle{
				FontSize:   14,
				FontFamily: Helvetica,
				FontStyle:  Normal,
				Color:      Color{R: 0x33, G: 0x33, B: 0x33},
			},
		},
	}
}

// AutoBind binds the starter placeholders to the first column whose name looks
// like a student name or a duration. Other fields are returned unchanged.
func AutoBind(fields []Field, columns []string) []Field {
	nameCol := findColumn(columns, namePattern)
	hoursCol := findColumn(columns, hoursPattern)

	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f
		switch {
		case f.FieldID() == NamePlaceholderID && nameCol != "":
			out[i] = bindText(f, nameCol)
		case f.FieldID() == HoursPlaceholderID && hoursCol != "":
			out[i] = bindText(f, hoursCol)
		}
	}
	return out
}

func findColumn(columns []string, pattern glob.Glob) string {
	for _, c := range columns {
		if pattern.Match(strings.ToLower(c)) {
			return c
		}
	}
	return ""
}

// bindText turns a text field into a BoundText on column. Image fields are
// returned unchanged.
func bindText(f Field, column string) Field {
	switch t := f.(type) {
	case StaticText:
		return BoundText{ID: t.ID, Label: t.Label, Position: t.Position, Column: column, TextStyle: t.TextStyle}
	case BoundText:
		t.Column = column
		return t
	}
	return f
}
