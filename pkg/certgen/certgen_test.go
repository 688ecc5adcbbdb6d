package certgen

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/klauspost/compress/zip"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sirupsen/logrus"

	"github.com/Alexmavl/Generador-Certificados/pkg/archive"
	"github.com/Alexmavl/Generador-Certificados/pkg/dataset"
	"github.com/Alexmavl/Generador-Certificados/pkg/layout"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestGenerator(backend *fakeBackend, config Config) *generator {
	config.Logger = quietLogger()
	return &generator{
		config:  config.withDefaults(),
		open:    backend.open,
		prepare: fakePrepare,
	}
}

func nameField() layout.Field {
	return layout.BoundText{ID: "name", Position: layout.NewPosition(50, 45), Column: "Nombre"}
}

type entry struct {
	name string
	data string
}

func readEntries(t *testing.T, data []byte) []entry {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	var entries []entry
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		entries = append(entries, entry{name: f.Name, data: string(b)})
	}
	return entries
}

func entryNames(entries []entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

func TestGenerateNamesArtifacts(t *testing.T) {
	backend := &fakeBackend{}
	g := newTestGenerator(backend, DefaultConfig())
	job := Job{
		Template: []byte("template"),
		Fields:   []layout.Field{nameField()},
		Rows: []dataset.Row{
			dataset.RowFromPairs("Nombre", "Ana"),
			dataset.RowFromPairs("Email", "x@example.com"),
			dataset.RowFromPairs("Name", "  ", "Nombre", "Luis"),
			dataset.RowFromPairs("Nombre", "Ana"),
			dataset.RowFromPairs("Nombre", "a/b"),
		},
	}

	result, err := g.run(context.Background(), job, archive.NewZip())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"Ana.pdf", "certificate_2.pdf", "Luis.pdf", "Ana (2).pdf", "a_b.pdf"}
	got := entryNames(readEntries(t, result.Archive))
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", got, want)
	}
	if result.Generated != 5 || result.Total != 5 {
		t.Errorf("Generated = %d, Total = %d", result.Generated, result.Total)
	}
	if result.RunID == "" {
		t.Errorf("missing run id")
	}
	// One trial import of the template, then one instance per row.
	if len(backend.instances) != 6 {
		t.Errorf("opened %d instances, want 6", len(backend.instances))
	}
}

func TestGenerateRendersRowValues(t *testing.T) {
	backend := &fakeBackend{}
	g := newTestGenerator(backend, DefaultConfig())
	job := Job{
		Template: []byte("template"),
		Fields: []layout.Field{
			layout.StaticText{ID: "title", Position: layout.NewPosition(50, 20), Content: "Certificado"},
			nameField(),
		},
		Rows: []dataset.Row{dataset.RowFromPairs("Nombre", "Ana"), dataset.RowFromPairs("Nombre", "Luis")},
	}

	result, err := g.run(context.Background(), job, archive.NewZip())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	entries := readEntries(t, result.Archive)
	if entries[0].data != "%PDF-fake Certificado|Ana" || entries[1].data != "%PDF-fake Certificado|Luis" {
		t.Errorf("entries = %+v", entries)
	}

	// Each document embeds its own fonts.
	for i, inst := range backend.instances[1:] {
		if len(inst.embedded) != 1 {
			t.Errorf("instance %d embedded %d fonts, want 1", i, len(inst.embedded))
		}
	}
}

func TestGenerateProgress(t *testing.T) {
	for _, workers := range []int{1, 3} {
		var progress []float64
		config := DefaultConfig()
		config.Workers = workers
		config.OnProgress = func(p float64) { progress = append(progress, p) }

		g := newTestGenerator(&fakeBackend{failOn: "Bad"}, config)
		job := Job{Template: []byte("template"), Fields: []layout.Field{nameField()}}
		for _, name := range []string{"A", "Bad", "C", "D", "E", "F", "G"} {
			job.Rows = append(job.Rows, dataset.RowFromPairs("Nombre", name))
		}

		if _, err := g.run(context.Background(), job, archive.NewZip()); err != nil {
			t.Fatalf("workers=%d: run: %v", workers, err)
		}
		if len(progress) != len(job.Rows) {
			t.Fatalf("workers=%d: %d progress calls, want %d", workers, len(progress), len(job.Rows))
		}
		for i := 1; i < len(progress); i++ {
			if progress[i] <= progress[i-1] {
				t.Errorf("workers=%d: progress not increasing: %v", workers, progress)
			}
		}
		if progress[len(progress)-1] != 100 {
			t.Errorf("workers=%d: final progress = %v, want 100", workers, progress[len(progress)-1])
		}
	}
}

func TestGenerateZeroRows(t *testing.T) {
	called := false
	config := DefaultConfig()
	config.OnProgress = func(float64) { called = true }
	g := newTestGenerator(&fakeBackend{}, config)

	result, err := g.run(context.Background(), Job{Template: []byte("template"), Fields: []layout.Field{nameField()}}, archive.NewZip())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := len(readEntries(t, result.Archive)); n != 0 {
		t.Errorf("archive has %d entries, want 0", n)
	}
	if called {
		t.Errorf("progress reported for an empty dataset")
	}
	if result.Summary() != "0 of 0 certificates generated, 0 fields skipped" {
		t.Errorf("Summary = %q", result.Summary())
	}
}

func TestGenerateSkipsFailedRows(t *testing.T) {
	for _, backend := range []*fakeBackend{{failOn: "Bad"}, {panicOn: "Bad"}} {
		g := newTestGenerator(backend, DefaultConfig())
		job := Job{
			Template: []byte("template"),
			Fields:   []layout.Field{nameField()},
			Rows: []dataset.Row{
				dataset.RowFromPairs("Nombre", "Ana"),
				dataset.RowFromPairs("Nombre", "Bad"),
				dataset.RowFromPairs("Nombre", "Luis"),
			},
		}

		result, err := g.run(context.Background(), job, archive.NewZip())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		got := entryNames(readEntries(t, result.Archive))
		if strings.Join(got, ",") != "Ana.pdf,Luis.pdf" {
			t.Errorf("entries = %v", got)
		}
		if result.Generated != 2 || result.SkippedRows != 1 {
			t.Errorf("Generated = %d, SkippedRows = %d", result.Generated, result.SkippedRows)
		}
		if len(result.Diagnostics) != 1 {
			t.Fatalf("diagnostics = %v", result.Diagnostics)
		}
		var rowErr *RowRenderError
		if !errors.As(result.Diagnostics[0].Err, &rowErr) || rowErr.Row != 2 || rowErr.Artifact != "Bad" {
			t.Errorf("diagnostic = %v, want RowRenderError for row 2", result.Diagnostics[0])
		}
	}
}

func TestGenerateSkipsBadImageField(t *testing.T) {
	g := newTestGenerator(&fakeBackend{}, DefaultConfig())
	job := Job{
		Template: []byte("template"),
		Fields: []layout.Field{
			layout.Image{ID: "logo", Position: layout.NewPosition(50, 20), Source: []byte("not an image")},
			nameField(),
		},
		Rows: []dataset.Row{dataset.RowFromPairs("Nombre", "Ana"), dataset.RowFromPairs("Nombre", "Luis")},
	}

	result, err := g.run(context.Background(), job, archive.NewZip())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Generated != 2 || result.SkippedFields != 2 {
		t.Errorf("Generated = %d, SkippedFields = %d", result.Generated, result.SkippedFields)
	}
	entries := readEntries(t, result.Archive)
	if entries[0].data != "%PDF-fake Ana" {
		t.Errorf("text after failed image missing: %q", entries[0].data)
	}
	for _, d := range result.Diagnostics {
		var decodeErr *ImageDecodeError
		if d.FieldID != "logo" || !errors.As(d.Err, &decodeErr) {
			t.Errorf("diagnostic = %v", d)
		}
	}
	if !strings.Contains(result.Summary(), "2 fields skipped") {
		t.Errorf("Summary = %q", result.Summary())
	}
}

func TestGenerateWorkersKeepRowOrder(t *testing.T) {
	config := DefaultConfig()
	config.Workers = 4
	g := newTestGenerator(&fakeBackend{}, config)

	job := Job{Template: []byte("template"), Fields: []layout.Field{nameField()}}
	var want []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		job.Rows = append(job.Rows, dataset.RowFromPairs("Nombre", name))
		want = append(want, name+".pdf")
	}

	result, err := g.run(context.Background(), job, archive.NewZip())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := entryNames(readEntries(t, result.Archive))
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", got, want)
	}
}

func TestGenerateCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	config := DefaultConfig()
	config.OnProgress = func(float64) { once.Do(cancel) }
	g := newTestGenerator(&fakeBackend{}, config)

	job := Job{
		Template: []byte("template"),
		Fields:   []layout.Field{nameField()},
		Rows: []dataset.Row{
			dataset.RowFromPairs("Nombre", "Ana"),
			dataset.RowFromPairs("Nombre", "Luis"),
			dataset.RowFromPairs("Nombre", "Eva"),
		},
	}

	result, err := g.run(ctx, job, archive.NewZip())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result == nil {
		t.Fatalf("partial result missing")
	}
	got := entryNames(readEntries(t, result.Archive))
	if strings.Join(got, ",") != "Ana.pdf" {
		t.Errorf("entries = %v, want only the first row", got)
	}
}

func TestGenerateTemplateFirst(t *testing.T) {
	backend := &fakeBackend{}
	g := newTestGenerator(backend, DefaultConfig())

	_, err := g.run(context.Background(), Job{Rows: []dataset.Row{dataset.RowFromPairs("Nombre", "Ana")}}, archive.NewZip())
	var parseErr *TemplateParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *TemplateParseError", err)
	}
	if len(backend.instances) != 0 {
		t.Errorf("rows were processed after a template failure")
	}
}

func TestGenerateRejectsDuplicateFieldIDs(t *testing.T) {
	g := newTestGenerator(&fakeBackend{}, DefaultConfig())
	job := Job{Template: []byte("template"), Fields: []layout.Field{nameField(), nameField()}}
	if _, err := g.run(context.Background(), job, archive.NewZip()); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestGenerateInvalidTemplate(t *testing.T) {
	config := DefaultConfig()
	config.Logger = quietLogger()
	job := Job{
		Template: []byte("this is definitely not a PDF"),
		Fields:   []layout.Field{nameField()},
		Rows:     []dataset.Row{dataset.RowFromPairs("Nombre", "Ana")},
	}

	_, err := Generate(context.Background(), job, config)
	var parseErr *TemplateParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *TemplateParseError", err)
	}
}

func makeTemplate(t *testing.T) []byte {
	t.Helper()
	pdf := fpdf.New("L", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 32)
	pdf.Text(200, 100, "Certificate of Completion")
	pdf.Rect(20, 20, 801, 555, "D")
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build template: %v", err)
	}
	return buf.Bytes()
}

func TestGenerateEndToEnd(t *testing.T) {
	template := makeTemplate(t)

	info, err := InspectTemplate(template)
	if err != nil {
		t.Fatalf("InspectTemplate: %v", err)
	}
	if info.Pages != 1 || info.Width <= info.Height {
		t.Errorf("info = %+v, want one landscape page", info)
	}

	config := DefaultConfig()
	config.Logger = quietLogger()
	job := Job{
		Template: template,
		Fields: append(layout.DefaultFields(),
			layout.Image{ID: "logo", Position: layout.NewPosition(50, 80), Source: encodePNG(t, 20, 10)},
			layout.Image{ID: "broken", Position: layout.NewPosition(10, 80), Source: []byte("nope")},
		),
		Rows: []dataset.Row{
			dataset.RowFromPairs("Nombre", "José Núñez", "Horas", 40),
			dataset.RowFromPairs("Email", "nobody@example.com"),
		},
	}
	job.Fields = layout.AutoBind(job.Fields, []string{"Nombre", "Horas"})

	result, err := Generate(context.Background(), job, config)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	entries := readEntries(t, result.Archive)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].name != "José Núñez.pdf" || entries[1].name != "certificate_2.pdf" {
		t.Errorf("entries = %v", entryNames(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.data, "%PDF") {
			t.Errorf("%s is not a PDF", e.name)
		}
		if _, err := InspectTemplate([]byte(e.data)); err != nil {
			t.Errorf("%s does not parse: %v", e.name, err)
		}
	}
	if result.SkippedFields != 2 {
		t.Errorf("SkippedFields = %d, want 2 (broken image on each row)", result.SkippedFields)
	}
}

func TestGenerateUnimportableTemplate(t *testing.T) {
	called := false
	config := DefaultConfig()
	config.OnProgress = func(float64) { called = true }
	g := newTestGenerator(&fakeBackend{openErr: errors.New("cannot import page")}, config)
	job := Job{
		Template: []byte("template"),
		Fields:   []layout.Field{nameField()},
		Rows:     []dataset.Row{dataset.RowFromPairs("Nombre", "Ana"), dataset.RowFromPairs("Nombre", "Luis")},
	}

	result, err := g.run(context.Background(), job, archive.NewZip())
	var parseErr *TemplateParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *TemplateParseError", err)
	}
	if result != nil || called {
		t.Errorf("rows were processed after the template failed to import")
	}
}

// streamedTemplate rewrites a template with object streams and a
// cross-reference stream, the default layout of most current PDF writers.
func streamedTemplate(t *testing.T) []byte {
	t.Helper()
	conf := newPDFConfig()
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true

	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(makeTemplate(t)), &buf, conf); err != nil {
		t.Fatalf("api.Optimize: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("/ObjStm")) {
		t.Fatalf("template was not written with object streams")
	}
	return buf.Bytes()
}

func TestPrepareTemplateRemovesObjectStreams(t *testing.T) {
	tpl, err := PrepareTemplate(streamedTemplate(t))
	if err != nil {
		t.Fatalf("PrepareTemplate: %v", err)
	}
	if bytes.Contains(tpl.data, []byte("/ObjStm")) {
		t.Errorf("prepared template still uses object streams")
	}
	if tpl.Pages != 1 || tpl.Width <= tpl.Height {
		t.Errorf("info = %+v, want one landscape page", tpl.TemplateInfo)
	}
	if _, err := openDocument(tpl.data, tpl.Width, tpl.Height); err != nil {
		t.Errorf("openDocument: %v", err)
	}
}

func TestGenerateStreamedTemplate(t *testing.T) {
	config := DefaultConfig()
	config.Logger = quietLogger()
	job := Job{
		Template: streamedTemplate(t),
		Fields:   []layout.Field{nameField()},
		Rows: []dataset.Row{
			dataset.RowFromPairs("Nombre", "Ana"),
			dataset.RowFromPairs("Nombre", "Luis"),
			dataset.RowFromPairs("Nombre", "Eva"),
		},
	}

	result, err := Generate(context.Background(), job, config)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Generated != len(job.Rows) {
		t.Fatalf("Generated = %d, want %d; diagnostics: %v", result.Generated, len(job.Rows), result.Diagnostics)
	}
	for _, e := range readEntries(t, result.Archive) {
		if !strings.HasPrefix(e.data, "%PDF") {
			t.Errorf("%s is not a PDF", e.name)
		}
	}
}
