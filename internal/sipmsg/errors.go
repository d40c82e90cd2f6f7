package sipmsg

import "errors"

// Parse error taxonomy, per the codec's fail-closed contract: a malformed
// datagram is dropped by the caller, never partially interpreted.
var (
	ErrMalformedStartLine = errors.New("sipmsg: malformed start line")
	ErrMalformedHeader    = errors.New("sipmsg: malformed header line")
	ErrInvalidEncoding    = errors.New("sipmsg: invalid utf-8 encoding")
)
