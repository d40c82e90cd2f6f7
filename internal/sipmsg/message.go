// Package sipmsg implements a tolerant, line-oriented codec for SIP/2.0
// text messages. It parses raw UDP payloads into a structured Message and
// serializes responses back to wire format. It does not interpret
// semantics — that is the engine's job.
package sipmsg

import "strings"

// HeaderOrder is the order the serializer emits well-known headers in,
// before any remaining headers (in their original insertion order) and
// the blank line separating headers from body.
var HeaderOrder = []string{
	"Via", "From", "To", "Call-ID", "CSeq", "Contact",
	"Allow", "Accept", "Expires", "Content-Type", "Content-Length",
}

// StartLine is either a request line (Method Request-URI Version) or a
// response line (Version Status Reason).
type StartLine struct {
	IsRequest bool

	Method     string
	RequestURI string

	StatusCode int
	Reason     string

	Version string
}

// Headers is a canonicalizing, order-preserving multi-valued header map.
// Lookups are case-insensitive through a lowercase internal key; the name
// shown on the wire is the casing passed to the first Add or latest Set.
type Headers struct {
	order  []string // lowercase keys, insertion order, first-seen
	values map[string][]string
	disp   map[string]string // lowercase key -> display-cased name
}

// NewHeaders returns an empty header map.
func NewHeaders() *Headers {
	return &Headers{
		values: make(map[string][]string),
		disp:   make(map[string]string),
	}
}

func canonKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Add appends a value for name, preserving arrival order for duplicates.
func (h *Headers) Add(name, value string) {
	k := canonKey(name)
	if _, ok := h.values[k]; !ok {
		h.order = append(h.order, k)
		h.disp[k] = name
	}
	h.values[k] = append(h.values[k], value)
}

// Set replaces all values for name with a single value.
func (h *Headers) Set(name, value string) {
	k := canonKey(name)
	if _, ok := h.values[k]; !ok {
		h.order = append(h.order, k)
	}
	h.disp[k] = name
	h.values[k] = []string{value}
}

// Get returns the first value for name, or "" if absent.
func (h *Headers) Get(name string) string {
	vs := h.values[canonKey(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// GetAll returns every value for name in arrival order.
func (h *Headers) GetAll(name string) []string {
	return h.values[canonKey(name)]
}

// Has reports whether name has at least one value.
func (h *Headers) Has(name string) bool {
	return len(h.values[canonKey(name)]) > 0
}

// Names returns display names in first-seen order.
func (h *Headers) Names() []string {
	names := make([]string, len(h.order))
	for i, k := range h.order {
		names[i] = h.disp[k]
	}
	return names
}

// Message is a fully parsed SIP message.
type Message struct {
	StartLine StartLine
	Headers   *Headers
	Body      []byte
}

// IsMethod reports whether the message is a request for the given method
// (case-insensitive, per RFC 3261 methods are case-sensitive tokens but
// real-world clients vary).
func (m *Message) IsMethod(method string) bool {
	return m.StartLine.IsRequest && strings.EqualFold(m.StartLine.Method, method)
}
