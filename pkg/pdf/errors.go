package pdf

import (
	"fmt"

	"github.com/pkg/errors"
)

// PermissionError reports that the document's security handler forbids
// content extraction.
type PermissionError struct {
	File string
}

func (e *PermissionError) Error() string {
	if e.File == "" {
		return "content extraction not permitted"
	}
	return fmt.Sprintf("%s: content extraction not permitted", e.File)
}

// StreamDecodeError reports a malformed content stream or image stream.
type StreamDecodeError struct {
	Page   int    // 1-based page number, 0 when unknown
	Stream string // what was being decoded, e.g. "content", "image 12 0 R"
	Offset int    // byte offset into the decoded stream, -1 when not applicable
	Err    error
}

func (e *StreamDecodeError) Error() string {
	msg := "decode " + e.Stream
	if e.Page > 0 {
		msg = fmt.Sprintf("page %d: %s", e.Page, msg)
	}
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s at offset %d", msg, e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StreamDecodeError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports an image that cannot be decoded or written
// in the chosen format. It is recoverable per image.
type UnsupportedFormatError struct {
	Format string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Reason == "" {
		return "unsupported format " + e.Format
	}
	return fmt.Sprintf("unsupported format %s: %s", e.Format, e.Reason)
}

// IOError reports a failure writing an output file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// IsUnsupported reports whether err carries an UnsupportedFormatError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedFormatError
	return errors.As(err, &ue)
}

func decodeError(stream string, err error) error {
	return &StreamDecodeError{Stream: stream, Offset: -1, Err: err}
}

func unsupported(format, reason string, args ...interface{}) error {
	return &UnsupportedFormatError{Format: format, Reason: fmt.Sprintf(reason, args...)}
}
