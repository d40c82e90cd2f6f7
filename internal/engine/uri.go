package engine

import "strings"

// userPartFromURI extracts the user portion of a "From"/"To" header
// value shaped like `"Display" <sip:1001@host>` or bare `sip:1001@host`.
// Returns "" if no sip: user-part is present.
func userPartFromURI(header string) string {
	i := strings.Index(header, "sip:")
	if i < 0 {
		return ""
	}
	rest := header[i+len("sip:"):]
	at := strings.IndexByte(rest, '@')
	if at < 0 {
		return ""
	}
	user := rest[:at]
	// Drop a password if the userinfo carries one, e.g.
	// "sip:alice:pw@host" (password form) — only the part
	// before ':' is the user.
	if c := strings.IndexByte(user, ':'); c >= 0 {
		user = user[:c]
	}
	return user
}
