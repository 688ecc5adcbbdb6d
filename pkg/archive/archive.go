// Package archive packages generated certificates into a single ZIP bundle.
//
// The writer follows a create / add / finalize lifecycle: NewZip (or NewZipStream)
// once, AddFile once per certificate, Finalize once. Names are cleaned of path
// separators and control characters, and a repeated name gets a " (2)", " (3)", ...
// suffix so no entry overwrites another.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/klauspost/compress/zip"
)

// Writer is the archive sink used by the generator.
type Writer interface {
	AddFile(name string, data []byte) error
	Finalize() ([]byte, error)
}

// Zip writes a ZIP archive either into memory or onto a stream.
type Zip struct {
	zw     *zip.Writer
	buf    *bytes.Buffer // nil when streaming
	names  map[string]bool
	count  int
	closed bool
}

// NewZip creates an in-memory archive; Finalize returns its bytes.
func NewZip() *Zip {
	buf := new(bytes.Buffer)
	z := newZip(buf)
	z.buf = buf
	return z
}

// NewZipStream writes the archive directly to w; Finalize returns nil bytes.
// The caller owns w and closes it after Finalize.
func NewZipStream(w io.Writer) *Zip {
	return newZip(w)
}

func newZip(w io.Writer) *Zip {
	return &Zip{
		zw:    zip.NewWriter(w),
		names: make(map[string]bool),
	}
}

// AddFile stores data under name, deflated.
func (z *Zip) AddFile(name string, data []byte) error {
	if z.closed {
		return fmt.Errorf("archive already finalized")
	}
	name = z.uniqueName(name)

	fw, err := z.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to create archive entry %q: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write archive entry %q: %w", name, err)
	}
	z.count++
	return nil
}

// Finalize writes the central directory. It may be called only once.
func (z *Zip) Finalize() ([]byte, error) {
	if z.closed {
		return nil, fmt.Errorf("archive already finalized")
	}
	z.closed = true
	if err := z.zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if z.buf == nil {
		return nil, nil
	}
	return z.buf.Bytes(), nil
}

// Len returns the number of entries added so far.
func (z *Zip) Len() int { return z.count }

func (z *Zip) uniqueName(name string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; z.names[candidate]; n++ {
		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
	z.names[candidate] = true
	return candidate
}

// CleanName makes s safe as a flat archive entry name: path separators and
// reserved characters become '_', control characters are dropped, and
// surrounding spaces and dots are trimmed.
func CleanName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
			continue
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), " .")
}
