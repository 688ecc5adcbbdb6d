// Package certgen turns one PDF template and one dataset into a batch of
// individualized certificates, packaged as a single archive.
//
// Every dataset row gets its own fresh copy of the template's first page, on which
// the layout's fields are drawn in order:
//
// - Static text: the same literal content for every row
// - Bound text: the row's value for the field's column, horizontally centered
// - Images: PNG or JPEG overlays, centered on both axes
//
// Only an unreadable template aborts the run. An undecodable image skips that
// field and a row that cannot be rendered is left out of the archive; both are
// reported in Result.Diagnostics.
//
// Key Features:
//
// - Row isolation: the template is re-parsed for each row, fonts are embedded per document
// - Image sources are read once per run and shared by all rows
// - Optional bounded parallelism with row-ordered archive output and progress
// - Cancellation through context.Context, keeping the rows already archived
//
// Main Functions:
//
// - Generate: renders a batch into an in-memory ZIP archive
// - GenerateTo: renders a batch into any archive.Writer (e.g. a ZIP streamed to disk)
// - InspectTemplate: validates a template and reports its page size
package certgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Alexmavl/Generador-Certificados/pkg/archive"
	"github.com/Alexmavl/Generador-Certificados/pkg/dataset"
	"github.com/Alexmavl/Generador-Certificados/pkg/layout"
)

// Job is the input of one batch run. It must not be modified while the run is
// in progress.
type Job struct {
	Template []byte         // PDF bytes; only the first page is used
	Fields   []layout.Field // Drawn in order, later fields on top
	Rows     []dataset.Row  // One certificate per row
}

// Diagnostic records a failure that was absorbed instead of aborting the run.
// FieldID is empty when the whole row was skipped.
type Diagnostic struct {
	Row      int    // 1-based row number
	Artifact string // Artifact name of the row
	FieldID  string // Skipped field, if any
	Err      error
}

func (d Diagnostic) String() string {
	if d.FieldID != "" {
		return fmt.Sprintf("row %d (%s): field %s skipped: %v", d.Row, d.Artifact, d.FieldID, d.Err)
	}
	return fmt.Sprintf("row %d (%s) skipped: %v", d.Row, d.Artifact, d.Err)
}

// Result summarizes a batch run.
type Result struct {
	RunID         string       // Unique id of the run, also used in log entries
	Archive       []byte       // Archive bytes; nil when the writer streams elsewhere
	Total         int          // Rows in the job
	Generated     int          // Certificates written to the archive
	SkippedRows   int          // Rows left out of the archive
	SkippedFields int          // Fields omitted from certificates that were written
	Diagnostics   []Diagnostic // Everything that was skipped, in row order
}

// Summary reports the outcome in one line.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d of %d certificates generated, %d fields skipped",
		r.Generated, r.Total, r.SkippedFields)
}

// Generate renders every row of job into an in-memory ZIP archive.
func Generate(ctx context.Context, job Job, config Config) (*Result, error) {
	return GenerateTo(ctx, job, archive.NewZip(), config)
}

// GenerateTo renders every row of job and adds one file per successful row to w,
// then finalizes w.
//
// An invalid template, or one whose first page cannot be imported, fails with
// *TemplateParseError before anything is written.
// Row and field failures are recorded in Result.Diagnostics. If ctx is canceled,
// no further rows are started; the archive is finalized with the rows already
// added and the partial Result is returned with an error wrapping ctx.Err().
func GenerateTo(ctx context.Context, job Job, w archive.Writer, config Config) (*Result, error) {
	g := &generator{
		config:  config.withDefaults(),
		open:    func(template []byte, width, height float64) (instance, error) { return openDocument(template, width, height) },
		prepare: PrepareTemplate,
	}
	return g.run(ctx, job, w)
}

// generator carries the collaborators of a run so tests can replace the
// PDF backend.
type generator struct {
	config  Config
	open    func(template []byte, width, height float64) (instance, error)
	prepare func(template []byte) (*Template, error)
}

// rowOutput is the product of rendering one row.
type rowOutput struct {
	index int
	name  string
	data  []byte
	diags []Diagnostic
	err   error
}

func (g *generator) run(ctx context.Context, job Job, w archive.Writer) (*Result, error) {
	if err := layout.Validate(job.Fields); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	// Validate the template before any row is processed
	tpl, err := g.prepare(job.Template)
	if err != nil {
		return nil, err
	}
	if _, err := g.open(tpl.data, tpl.Width, tpl.Height); err != nil {
		return nil, &TemplateParseError{Err: err}
	}
	info := tpl.TemplateInfo

	result := &Result{RunID: uuid.NewString(), Total: len(job.Rows)}
	log := getLogger(g.config).WithField("run", result.RunID)
	log.WithFields(logrus.Fields{
		"rows":    len(job.Rows),
		"fields":  len(job.Fields),
		"pages":   info.Pages,
		"width":   info.Width,
		"height":  info.Height,
		"workers": g.config.Workers,
	}).Info("starting certificate generation")
	if info.Pages > 1 {
		log.Warnf("template has %d pages; only the first is used", info.Pages)
	}

	images := newImageCache(job.Fields)
	total := len(job.Rows)
	done := 0
	var stopErr error

	// Rows are rendered in windows of Workers rows; within a window they may run
	// concurrently, but archive writes and progress stay in row order.
	for start := 0; start < total; start += g.config.Workers {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		end := min(start+g.config.Workers, total)
		outputs := make([]rowOutput, end-start)

		// The group is only a join point: row failures travel in rowOutput.
		var eg errgroup.Group
		eg.SetLimit(g.config.Workers)
		for i := start; i < end; i++ {
			eg.Go(func() error {
				outputs[i-start] = g.renderRow(job, i, tpl, images)
				return nil
			})
		}
		eg.Wait()

		for _, out := range outputs {
			rowLog := log.WithFields(logrus.Fields{"row": out.index + 1, "artifact": out.name})
			for _, d := range out.diags {
				rowLog.WithField("field", d.FieldID).WithError(d.Err).Warn("field skipped")
			}
			result.Diagnostics = append(result.Diagnostics, out.diags...)

			if out.err != nil {
				rowLog.WithError(out.err).Warn("row skipped")
				result.Diagnostics = append(result.Diagnostics, Diagnostic{Row: out.index + 1, Artifact: out.name, Err: out.err})
				result.SkippedRows++
			} else {
				if err := w.AddFile(out.name+g.config.Extension, out.data); err != nil {
					return nil, fmt.Errorf("failed to add %s to archive: %w", out.name, err)
				}
				result.Generated++
				result.SkippedFields += len(out.diags)
				rowLog.Debug("certificate added")
			}

			done++
			if g.config.OnProgress != nil {
				g.config.OnProgress(float64(done) / float64(total) * 100)
			}
		}
	}

	data, err := w.Finalize()
	if err != nil {
		return nil, err
	}
	result.Archive = data

	log.WithFields(logrus.Fields{
		"generated":      result.Generated,
		"skipped_rows":   result.SkippedRows,
		"skipped_fields": result.SkippedFields,
	}).Info(result.Summary())

	if stopErr != nil {
		return result, fmt.Errorf("generation stopped after %d of %d rows: %w", done, total, stopErr)
	}
	return result, nil
}

// renderRow produces one certificate on a fresh template instance with its own
// font cache.
func (g *generator) renderRow(job Job, i int, tpl *Template, images *ImageCache) (out rowOutput) {
	row := job.Rows[i]
	out.index = i
	out.name = g.artifactName(row, i)

	defer func() {
		if r := recover(); r != nil {
			out.data = nil
			out.err = &RowRenderError{Row: i + 1, Artifact: out.name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	doc, err := g.open(tpl.data, tpl.Width, tpl.Height)
	if err != nil {
		out.err = &RowRenderError{Row: i + 1, Artifact: out.name, Err: err}
		return out
	}

	r := &renderer{
		fonts:      newFontCache(doc.embedFont),
		images:     images,
		fontSize:   g.config.DefaultFontSize,
		imageWidth: g.config.DefaultImageWidth,
	}
	for _, field := range job.Fields {
		if err := r.render(field, row, doc); err != nil {
			out.diags = append(out.diags, Diagnostic{Row: i + 1, Artifact: out.name, FieldID: field.FieldID(), Err: err})
		}
	}

	data, err := doc.Bytes()
	if err != nil {
		out.err = &RowRenderError{Row: i + 1, Artifact: out.name, Err: err}
		return out
	}
	out.data = data
	return out
}

// artifactName uses the first non-blank name column, falling back to the
// 1-based row number.
func (g *generator) artifactName(row dataset.Row, i int) string {
	for _, col := range g.config.NameColumns {
		v, ok := row.Get(col)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if name := archive.CleanName(v); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%s%d", g.config.FallbackPrefix, i+1)
}
