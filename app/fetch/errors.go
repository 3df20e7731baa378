package fetch

import (
	"fmt"
)

// NetError means no usable response arrived: DNS, TLS, connection reset,
// timeout or a body that could not be read to the end.
type NetError struct {
	URL string
	Err error
}

func (e *NetError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetError) Unwrap() error {
	return e.Err
}

// FileError is a local file system failure while materializing a download.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// StatusError is returned by Download when the server answers with a
// non-2xx status. Get never returns it; callers inspect the status instead.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
