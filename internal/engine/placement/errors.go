package placement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"

	"github.com/djyunz/SBSample/internal/engine/types"
)

var (
	// ErrNotHTTPResponse is returned when there is no HTTP response to validate
	ErrNotHTTPResponse = errors.New("response is not an HTTP response")

	// ErrZeroContentLength is returned when the server declared an empty body
	ErrZeroContentLength = errors.New("response declared zero content length")
)

// StatusCodeError is returned for status codes outside 200-299
type StatusCodeError struct {
	StatusCode int
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// ContentTypeMismatchError is returned when the response MIME type does not
// contain the expected one
type ContentTypeMismatchError struct {
	Expected string
	Actual   string
}

func (e *ContentTypeMismatchError) Error() string {
	return fmt.Sprintf("content type mismatch: expected %q, got %q", e.Expected, e.Actual)
}

// PlacementError wraps a file-system failure while placing a file
type PlacementError struct {
	Op   string
	Path string
	Err  error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("place file: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }

// Kind classifies download failures
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindTransport
	KindFilesystem
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindFilesystem:
		return "filesystem"
	default:
		return "unknown"
	}
}

// KindOf classifies err
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var statusErr *StatusCodeError
	var mismatchErr *ContentTypeMismatchError
	if errors.Is(err, ErrNotHTTPResponse) || errors.Is(err, ErrZeroContentLength) ||
		errors.As(err, &statusErr) || errors.As(err, &mismatchErr) {
		return KindValidation
	}

	var placeErr *PlacementError
	if errors.As(err, &placeErr) {
		return KindFilesystem
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return KindTransport
	}

	var pathErr *fs.PathError
	var linkErr *os.LinkError
	if errors.As(err, &pathErr) || errors.As(err, &linkErr) {
		return KindFilesystem
	}

	return KindUnknown
}

// SameKind compares two states like DownloadState.Equal, except that failed
// states match on the kind of their cause instead of its message.
func SameKind(a, b types.DownloadState) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind != types.StateFailed {
		return true
	}
	ka, kb := KindOf(a.Cause), KindOf(b.Cause)
	if ka != kb {
		return false
	}
	// Status code failures also compare the code itself
	var sa, sb *StatusCodeError
	if errors.As(a.Cause, &sa) && errors.As(b.Cause, &sb) {
		return sa.StatusCode == sb.StatusCode
	}
	return true
}
