package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

// Fingerprint derives a stable binding value from mostly-stable request
// headers. The client IP is deliberately excluded: mobile clients change
// addresses constantly without changing devices.
func Fingerprint(reqCtx domain.RequestContext) string {
	parts := []string{
		reqCtx.UserAgent,
		reqCtx.AcceptLanguage,
		reqCtx.AcceptEncoding,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
