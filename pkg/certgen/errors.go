package certgen

import (
	"errors"
	"fmt"
)

// ErrNoPages is wrapped by TemplateParseError when the template has no pages.
var ErrNoPages = errors.New("template has no pages")

// TemplateParseError means the template bytes are not a usable PDF. It is fatal:
// no row is processed and no archive is produced.
type TemplateParseError struct {
	Err error
}

func (e *TemplateParseError) Error() string {
	return fmt.Sprintf("invalid template: %v", e.Err)
}

func (e *TemplateParseError) Unwrap() error { return e.Err }

// RowRenderError means one row could not be instantiated, rendered or
// serialized. The row is left out of the archive and the batch continues.
type RowRenderError struct {
	Row      int    // 1-based row number
	Artifact string // Name the artifact would have had
	Err      error
}

func (e *RowRenderError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Artifact, e.Err)
}

func (e *RowRenderError) Unwrap() error { return e.Err }

// ImageDecodeError means an image field's bytes are neither PNG nor JPEG, or
// could not be embedded. The field is skipped; the row still renders.
type ImageDecodeError struct {
	FieldID  string
	Detected string // Content type sniffed from the bytes, if known
	Err      error
}

func (e *ImageDecodeError) Error() string {
	if e.Detected != "" {
		return fmt.Sprintf("image field %q (%s): %v", e.FieldID, e.Detected, e.Err)
	}
	return fmt.Sprintf("image field %q: %v", e.FieldID, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }
