package certgen

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// TemplateInfo describes the page a template contributes to each certificate.
type TemplateInfo struct {
	Pages  int     // Pages in the template; only the first is used
	Width  float64 // First page width in points
	Height float64 // First page height in points
}

// Template is a validated template ready to be instantiated once per row.
type Template struct {
	TemplateInfo
	data []byte // Rewritten with plain xref tables and no object streams
}

func newPDFConfig() *model.Configuration {
	// pdfcpu would otherwise create a configuration directory in the user's home.
	disableConfigDir.Do(func() { model.ConfigPath = "disable" })
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// InspectTemplate parses and validates template bytes. Any failure is a
// *TemplateParseError.
func InspectTemplate(template []byte) (TemplateInfo, error) {
	if len(template) == 0 {
		return TemplateInfo{}, &TemplateParseError{Err: errors.New("template is empty")}
	}

	dims, err := api.PageDims(bytes.NewReader(template), newPDFConfig())
	if err != nil {
		return TemplateInfo{}, &TemplateParseError{Err: err}
	}
	if len(dims) == 0 {
		return TemplateInfo{}, &TemplateParseError{Err: ErrNoPages}
	}
	first := dims[0]
	if first.Width <= 0 || first.Height <= 0 {
		return TemplateInfo{}, &TemplateParseError{Err: errors.New("first page has no size")}
	}
	return TemplateInfo{Pages: len(dims), Width: first.Width, Height: first.Height}, nil
}

// PrepareTemplate validates template and rewrites it in the classic file
// structure. The page importer cannot read cross-reference streams combined
// with object streams, which most current PDF writers produce by default.
func PrepareTemplate(template []byte) (*Template, error) {
	info, err := InspectTemplate(template)
	if err != nil {
		return nil, err
	}

	conf := newPDFConfig()
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(template), &buf, conf); err != nil {
		return nil, &TemplateParseError{Err: fmt.Errorf("failed to rewrite template: %w", err)}
	}
	return &Template{TemplateInfo: info, data: buf.Bytes()}, nil
}
