package certgen

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/Alexmavl/Generador-Certificados/pkg/layout"
)

type textCall struct {
	text  string
	x, y  float64
	face  Face
	size  float64
	color layout.Color
}

type imageCall struct {
	fieldID             string
	info                imageInfo
	x, y, width, height float64
}

// fakeInstance records draw calls. Text width is 0.6 em per rune, like a
// monospaced face.
type fakeInstance struct {
	width, height float64
	texts         []textCall
	images        []imageCall
	embedded      []Face
	failOn        string // DrawText of this text makes Bytes fail
	panicOn       string // DrawText of this text panics
	failed        bool
}

func newFakeInstance(width, height float64) *fakeInstance {
	return &fakeInstance{width: width, height: height}
}

func (f *fakeInstance) Size() (float64, float64) { return f.width, f.height }

func (f *fakeInstance) TextWidth(text string, face Face, size float64) float64 {
	return float64(len([]rune(text))) * size * 0.6
}

func (f *fakeInstance) DrawText(text string, x, y float64, face Face, size float64, c layout.Color) {
	if f.panicOn != "" && text == f.panicOn {
		panic("boom")
	}
	if f.failOn != "" && text == f.failOn {
		f.failed = true
	}
	f.texts = append(f.texts, textCall{text: text, x: x, y: y, face: face, size: size, color: c})
}

func (f *fakeInstance) DrawImage(fieldID string, data []byte, info imageInfo, x, y, width, height float64) error {
	f.images = append(f.images, imageCall{fieldID: fieldID, info: info, x: x, y: y, width: width, height: height})
	return nil
}

func (f *fakeInstance) embedFont(face Face) { f.embedded = append(f.embedded, face) }

func (f *fakeInstance) Bytes() ([]byte, error) {
	if f.failed {
		return nil, errors.New("serialization failed")
	}
	var parts []string
	for _, t := range f.texts {
		parts = append(parts, t.text)
	}
	return []byte("%PDF-fake " + strings.Join(parts, "|")), nil
}

// fakeBackend hands out fake instances and remembers them.
type fakeBackend struct {
	mu        sync.Mutex
	instances []*fakeInstance
	failOn    string
	panicOn   string
	openErr   error
}

func (b *fakeBackend) open(template []byte, width, height float64) (instance, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	inst := newFakeInstance(width, height)
	inst.failOn = b.failOn
	inst.panicOn = b.panicOn
	b.mu.Lock()
	b.instances = append(b.instances, inst)
	b.mu.Unlock()
	return inst, nil
}

func fakePrepare(template []byte) (*Template, error) {
	if len(template) == 0 {
		return nil, &TemplateParseError{Err: errors.New("template is empty")}
	}
	return &Template{TemplateInfo: TemplateInfo{Pages: 1, Width: 600, Height: 400}, data: template}, nil
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}
