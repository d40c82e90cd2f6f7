package sipmsg

import (
	"strings"
	"testing"
)

func TestParseSDPKnownLines(t *testing.T) {
	body := "v=0\r\n" +
		"o=alice 123 456 IN IP4 1.2.3.4\r\n" +
		"s=-\r\n" +
		"c=IN IP4 1.2.3.4\r\n" +
		"m=audio 49170 RTP/AVP 0\r\n" +
		"a=rtpmap:0 PCMU/8000\r\n" +
		"x=ignored\r\n"

	sum := ParseSDP([]byte(body))
	if sum.Version != "0" {
		t.Errorf("version = %q", sum.Version)
	}
	if sum.Media != "audio 49170 RTP/AVP 0" {
		t.Errorf("media = %q", sum.Media)
	}
	if len(sum.Codecs) != 1 || sum.Codecs[0] != "0 PCMU/8000" {
		t.Errorf("codecs = %v", sum.Codecs)
	}
}

func TestParseSDPMissingMediaDefaultsCodecs(t *testing.T) {
	sum := ParseSDP([]byte("v=0\r\n"))
	if len(sum.Codecs) != 2 || sum.Codecs[0] != "PCMU" || sum.Codecs[1] != "PCMA" {
		t.Errorf("default codecs = %v", sum.Codecs)
	}
}

func TestBuildAnswerSDPExactFormat(t *testing.T) {
	sdp := string(BuildAnswerSDP("10.0.0.1"))
	for _, want := range []string{
		"v=0",
		"o=engine 123456 654321 IN IP4 10.0.0.1",
		"s=VoIP Call",
		"c=IN IP4 10.0.0.1",
		"t=0 0",
		"m=audio 8000 RTP/AVP 0",
		"a=rtpmap:0 PCMU/8000",
	} {
		if !strings.Contains(sdp, want) {
			t.Errorf("answer SDP missing %q:\n%s", want, sdp)
		}
	}
}
