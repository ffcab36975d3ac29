package helpers

import (
	"net/url"
	"regexp"
)

// Paginator URLs come back from storage with a host that should at least look
// like a public hostname. This is a shape check only, no resolution.
var tldSuffix = regexp.MustCompile(`\.[A-Za-z]{2,63}$`)

// ExtractCursorFromURL pulls the cursor query parameter out of a previously
// issued next/previous page URL. It returns nil for an empty or malformed
// URL, nil when the cursor parameter is absent, and a pointer to the empty
// string when the parameter is present without a value.
func ExtractCursorFromURL(raw string) *string {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	if !tldSuffix.MatchString(u.Hostname()) {
		return nil
	}
	vals, ok := u.Query()["cursor"]
	if !ok || len(vals) == 0 {
		return nil
	}
	return &vals[0]
}
