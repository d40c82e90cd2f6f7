package sipmsg

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders a Message to CRLF-delimited wire format. Well-known
// headers are emitted in HeaderOrder when present, followed by any
// remaining headers in insertion order, a blank line, then the body.
// Content-Length is always recomputed from len(Body).
func Serialize(m *Message) []byte {
	var b strings.Builder

	writeStartLine(&b, m.StartLine)

	emitted := make(map[string]bool, len(HeaderOrder))
	for _, name := range HeaderOrder {
		k := canonKey(name)
		if !m.Headers.Has(name) {
			continue
		}
		if k == "content-length" {
			continue // recomputed below, after remaining headers decision
		}
		writeHeader(&b, name, m.Headers.GetAll(name))
		emitted[k] = true
	}
	emitted[canonKey("Content-Length")] = true

	for _, name := range m.Headers.Names() {
		k := canonKey(name)
		if emitted[k] {
			continue
		}
		writeHeader(&b, name, m.Headers.GetAll(name))
		emitted[k] = true
	}

	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(m.Body))
	b.WriteString("\r\n")

	out := []byte(b.String())
	out = append(out, m.Body...)
	return out
}

func writeStartLine(b *strings.Builder, sl StartLine) {
	if sl.IsRequest {
		fmt.Fprintf(b, "%s %s %s\r\n", sl.Method, sl.RequestURI, sl.Version)
		return
	}
	fmt.Fprintf(b, "%s %d %s\r\n", sl.Version, sl.StatusCode, sl.Reason)
}

func writeHeader(b *strings.Builder, name string, values []string) {
	for _, v := range values {
		fmt.Fprintf(b, "%s: %s\r\n", name, v)
	}
}

// CopyHeader copies every value of name from src to dst, preserving order.
// Used by the engine to echo Via/From/To/Call-ID/CSeq onto responses.
func CopyHeader(dst, src *Headers, name string) {
	for _, v := range src.GetAll(name) {
		dst.Add(name, v)
	}
}

// NewResponse builds a bare response Message with the given status and
// reason; callers add headers and body before Serialize.
func NewResponse(status int, reason string) *Message {
	return &Message{
		StartLine: StartLine{
			IsRequest:  false,
			Version:    "SIP/2.0",
			StatusCode: status,
			Reason:     reason,
		},
		Headers: NewHeaders(),
	}
}

// StatusText returns the canonical reason phrase for status codes this
// engine emits, matching spec's limited set (100, 180, 200, 400).
func StatusText(status int) string {
	switch status {
	case 100:
		return "Trying"
	case 180:
		return "Ringing"
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	default:
		return strconv.Itoa(status)
	}
}
