package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"glow/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// fingerprint identifies the content of a create request so that a reused
// idempotency key with a different body can be rejected.
func fingerprint(c core.Candidate) string {
	h := sha256.New()
	for _, field := range []string{c.Title, c.Amount, c.Kind, c.Date, c.Category} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
