package security

import "crypto/subtle"

// CSRFTokensMatch compares the cookie and header halves of a double-submit
// pair. Both must be present; comparison is constant-time so the position of
// the first mismatched byte does not leak through timing.
func CSRFTokensMatch(cookieToken, headerToken string) bool {
	if cookieToken == "" || headerToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) == 1
}
