package sipmsg

import "strings"

// SDPSummary is the small subset of an SDP body the engine needs for its
// audit trail. Unknown lines are ignored; SDP parsing never fails the
// INVITE it came with, it only affects what gets logged.
type SDPSummary struct {
	Version    string
	Origin     string
	Connection string
	Media      string
	Codecs     []string
}

// DefaultOfferedCodecs is used when an INVITE body has no m= line.
var DefaultOfferedCodecs = []string{"PCMU", "PCMA"}

// ParseSDP extracts v=, o=, c=, m= and a=rtpmap: lines from an SDP body.
// Grounded on the reference implementation's parse_sdp: a handful of
// fixed-prefix lines, nothing else.
func ParseSDP(body []byte) SDPSummary {
	var sum SDPSummary
	lines := strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n")
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "v="):
			sum.Version = line[2:]
		case strings.HasPrefix(line, "o="):
			sum.Origin = line[2:]
		case strings.HasPrefix(line, "c="):
			sum.Connection = line[2:]
		case strings.HasPrefix(line, "m="):
			sum.Media = line[2:]
		case strings.HasPrefix(line, "a=rtpmap:"):
			sum.Codecs = append(sum.Codecs, line[len("a=rtpmap:"):])
		}
	}
	if sum.Media == "" {
		sum.Codecs = DefaultOfferedCodecs
	}
	return sum
}

// BuildAnswerSDP renders the fixed PCMU/8000 answer body spec.md §6
// mandates, advertised from bindAddr.
func BuildAnswerSDP(bindAddr string) []byte {
	var b strings.Builder
	b.WriteString("v=0\r\n")
	b.WriteString("o=engine 123456 654321 IN IP4 " + bindAddr + "\r\n")
	b.WriteString("s=VoIP Call\r\n")
	b.WriteString("c=IN IP4 " + bindAddr + "\r\n")
	b.WriteString("t=0 0\r\n")
	b.WriteString("m=audio 8000 RTP/AVP 0\r\n")
	b.WriteString("a=rtpmap:0 PCMU/8000\r\n")
	return []byte(b.String())
}
