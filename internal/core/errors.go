package core

import (
	"errors"
	"fmt"
)

// ErrResponseTooLarge means a reply body exceeded MaxResponseBodySize.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// TransportError means the connection could not be established or the
// response could not be read.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-200 reply from the model server.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("Error from Ollama API (status %d): %s", e.StatusCode, e.Body)
}
