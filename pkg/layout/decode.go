package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fieldSpec is the on-disk shape of a field. It accepts both the explicit
// `kind` form and the editor's export (`type: TEXT|IMAGE` plus `valueKey`).
type fieldSpec struct {
	ID         string  `yaml:"id"`
	Kind       string  `yaml:"kind"`
	Type       string  `yaml:"type"`
	Label      string  `yaml:"label"`
	Content    string  `yaml:"content"`
	BindingKey *string `yaml:"bindingKey"`
	ValueKey   string  `yaml:"valueKey"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	FontSize   float64 `yaml:"fontSize"`
	FontFamily string  `yaml:"fontFamily"`
	FontStyle  string  `yaml:"fontStyle"`
	Color      string  `yaml:"color"`
	Source     string  `yaml:"source"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
}

type fileSpec struct {
	Fields []fieldSpec `yaml:"fields"`
}

// Load reads a layout file. Relative image sources are resolved against the
// directory containing the file.
func Load(path string) ([]Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}
	return Decode(data, filepath.Dir(path))
}

// Decode parses a YAML or JSON layout document and resolves every field to its
// variant. baseDir is used for relative image source paths.
func Decode(data []byte, baseDir string) ([]Field, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	fields := make([]Field, 0, len(spec.Fields))
	for i, fs := range spec.Fields {
		f, err := fs.resolve(baseDir)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i+1, err)
		}
		fields = append(fields, f)
	}
	if err := Validate(fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Validate checks that every field has an id and that ids are unique.
func Validate(fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		id := f.FieldID()
		if id == "" {
			return fmt.Errorf("field %d has no id", i+1)
		}
		if seen[id] {
			return fmt.Errorf("duplicate field id %q", id)
		}
		seen[id] = true
	}
	return nil
}

func (fs fieldSpec) resolve(baseDir string) (Field, error) {
	kind, err := fs.kind()
	if err != nil {
		return nil, err
	}
	pos := NewPosition(fs.X, fs.Y)

	switch kind {
	case KindImage:
		if fs.Source == "" {
			return nil, fmt.Errorf("image field %q has no source", fs.ID)
		}
		src := fs.Source
		if !filepath.IsAbs(src) && baseDir != "" {
			src = filepath.Join(baseDir, src)
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("image field %q: %w", fs.ID, err)
		}
		return Image{
			ID:            fs.ID,
			Label:         fs.Label,
			Position:      pos,
			Source:        data,
			WidthPercent:  clampPercent(fs.Width),
			HeightPercent: clampPercent(fs.Height),
		}, nil

	case KindBoundText:
		column := fs.ValueKey
		if fs.BindingKey != nil {
			column = *fs.BindingKey
		}
		return BoundText{
			ID:        fs.ID,
			Label:     fs.Label,
			Position:  pos,
			Column:    column,
			TextStyle: fs.textStyle(),
		}, nil
	}

	return StaticText{
		ID:        fs.ID,
		Label:     fs.Label,
		Position:  pos,
		Content:   fs.Content,
		TextStyle: fs.textStyle(),
	}, nil
}

// kind resolves the variant. An explicit kind wins; otherwise a text field is
// bound when bindingKey is present or valueKey is non-empty.
func (fs fieldSpec) kind() (Kind, error) {
	switch strings.ToLower(fs.Kind) {
	case "static_text", "static":
		return KindStaticText, nil
	case "bound_text", "bound":
		return KindBoundText, nil
	case "image":
		return KindImage, nil
	case "":
	default:
		return 0, fmt.Errorf("unknown field kind %q", fs.Kind)
	}

	switch strings.ToUpper(fs.Type) {
	case "IMAGE":
		return KindImage, nil
	case "TEXT", "":
	default:
		return 0, fmt.Errorf("unknown field type %q", fs.Type)
	}
	if fs.BindingKey != nil || fs.ValueKey != "" {
		return KindBoundText, nil
	}
	return KindStaticText, nil
}

func (fs fieldSpec) textStyle() TextStyle {
	// An unparseable color renders black.
	color, _ := ParseColor(fs.Color)
	return TextStyle{
		FontSize:   fs.FontSize,
		FontFamily: FontFamily(fs.FontFamily),
		FontStyle:  FontStyle(fs.FontStyle),
		Color:      color,
	}
}
