package engine

import "github.com/arimoto/sipcore/internal/sipmsg"

// echoedHeaders are copied verbatim from request to response on every
// reply the engine sends, per the response header-echoing rule.
var echoedHeaders = []string{"Via", "From", "To", "Call-ID", "CSeq"}

// buildResponse constructs a bare response with the standard echoed
// headers already copied from req. Callers add status-specific headers
// and body before serializing.
func buildResponse(req *sipmsg.Message, status int, reason string) *sipmsg.Message {
	resp := sipmsg.NewResponse(status, reason)
	for _, name := range echoedHeaders {
		sipmsg.CopyHeader(resp.Headers, req.Headers, name)
	}
	return resp
}

// extractCallID returns the Call-ID header value, or "" if absent.
func extractCallID(m *sipmsg.Message) string {
	return m.Headers.Get("Call-ID")
}
