package sipmsg

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Parse decodes a raw UDP payload into a Message. Line terminators may be
// CRLF or a lone LF; header folding (a continuation line starting with
// whitespace) is appended to the previous header's value with a single
// space separator. Everything after the first blank line is returned
// verbatim as the body.
func Parse(raw []byte) (*Message, error) {
	if !utf8.Valid(raw) {
		return nil, ErrInvalidEncoding
	}

	lines := splitLines(raw)

	// Skip leading empty lines before the start-line, tolerating stray
	// blank lines some UAs send before a datagram.
	idx := 0
	for idx < len(lines) && strings.TrimSpace(lines[idx]) == "" {
		idx++
	}
	if idx >= len(lines) {
		return nil, ErrMalformedStartLine
	}

	sl, err := parseStartLine(lines[idx])
	if err != nil {
		return nil, err
	}
	idx++

	headers := NewHeaders()
	lastName := ""
	bodyStartLine := -1
	for ; idx < len(lines); idx++ {
		line := lines[idx]
		if line == "" {
			bodyStartLine = idx + 1
			break
		}
		if isFoldedContinuation(line) && lastName != "" {
			cont := strings.TrimSpace(line)
			existing := headers.GetAll(lastName)
			if len(existing) > 0 {
				last := existing[len(existing)-1]
				headers.replaceLast(lastName, last+" "+cont)
			}
			continue
		}
		name, value, ok := splitHeaderLine(line)
		if !ok {
			return nil, ErrMalformedHeader
		}
		headers.Add(name, value)
		lastName = name
	}

	var body []byte
	if bodyStartLine >= 0 {
		body = bodyFrom(raw, bodyStartLine)
	}

	return &Message{StartLine: sl, Headers: headers, Body: body}, nil
}

// replaceLast overwrites the most recent value recorded for name — used
// only for header-folding continuations, which never introduce a new
// duplicate occurrence.
func (h *Headers) replaceLast(name, value string) {
	k := canonKey(name)
	vs := h.values[k]
	if len(vs) == 0 {
		h.Add(name, value)
		return
	}
	vs[len(vs)-1] = value
}

func isFoldedContinuation(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

func splitHeaderLine(line string) (name, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(line[:i])
	if name == "" {
		return "", "", false
	}
	value = strings.TrimSpace(line[i+1:])
	return name, value, true
}

// parseStartLine requires at least three whitespace-separated tokens,
// distinguishing a response ("SIP/2.0 200 OK") from a request
// ("INVITE sip:bob@x SIP/2.0") by whether the first token looks like a
// SIP version string.
func parseStartLine(line string) (StartLine, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return StartLine{}, ErrMalformedStartLine
	}

	if strings.HasPrefix(strings.ToUpper(fields[0]), "SIP/") {
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return StartLine{}, fmt.Errorf("%w: bad status code %q", ErrMalformedStartLine, fields[1])
		}
		reason := strings.TrimSpace(strings.Join(fields[2:], " "))
		return StartLine{
			IsRequest:  false,
			Version:    fields[0],
			StatusCode: code,
			Reason:     reason,
		}, nil
	}

	return StartLine{
		IsRequest:  true,
		Method:     fields[0],
		RequestURI: fields[1],
		Version:    fields[2],
	}, nil
}

// splitLines splits raw on CRLF or lone LF.
func splitLines(raw []byte) []string {
	s := string(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

// bodyFrom slices the verbatim body out of the original buffer. Every
// line splitLines produced ends at one '\n' in raw (CRLF or lone LF), so
// the body starts just past the bodyStartLine-th '\n'.
func bodyFrom(raw []byte, bodyStartLine int) []byte {
	off := 0
	for i := 0; i < bodyStartLine; i++ {
		j := bytes.IndexByte(raw[off:], '\n')
		if j < 0 {
			return nil
		}
		off += j + 1
	}
	if off >= len(raw) {
		return nil
	}
	return raw[off:]
}
