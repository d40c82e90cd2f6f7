package engine

import "testing"

func TestRegisterMissingFromUserPartYields400(t *testing.T) {
	e, _, _ := newTestEngine(t, 0)
	req := "REGISTER sip:server SIP/2.0\r\nFrom: <sip:host>\r\nTo: <sip:host>\r\nCall-ID: a@b\r\nCSeq: 1 REGISTER\r\n\r\n"

	out := e.Ingest(testAddr(t), []byte(req))
	if len(out) != 1 || parseStatus(out[0].Data) != 400 {
		t.Fatalf("got %v, want one 400", out)
	}
	if _, ok := e.reg.Get(""); ok {
		t.Fatal("registry should not have mutated")
	}
}

func TestRegisterInvalidExtensionYields400(t *testing.T) {
	e, _, _ := newTestEngine(t, 0)
	req := "REGISTER sip:server SIP/2.0\r\nFrom: <sip:ab@host>\r\nTo: <sip:ab@host>\r\nCall-ID: a@b\r\nCSeq: 1 REGISTER\r\n\r\n"

	out := e.Ingest(testAddr(t), []byte(req))
	if len(out) != 1 || parseStatus(out[0].Data) != 400 {
		t.Fatalf("got %v, want one 400", out)
	}
}
