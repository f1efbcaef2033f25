package validators

import (
	"net/http"
)

// SessionTokenHeader carries the offer session token on requests without a body.
const SessionTokenHeader = "X-Session-Token"

const maxSessionTokenLen = 256

// SessionToken picks the session token from the body field, the header or the
// sessionToken query parameter, in that order.
func SessionToken(r *http.Request, fromBody string) string {
	candidates := []string{fromBody}
	if r != nil {
		candidates = append(candidates, r.Header.Get(SessionTokenHeader), r.URL.Query().Get("sessionToken"))
	}
	for _, candidate := range candidates {
		if token := SanitizeString(candidate, maxSessionTokenLen); token != "" {
			return token
		}
	}
	return ""
}
