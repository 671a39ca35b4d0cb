package twitter

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// ct0MaxAge is how long a ct0 token is used before it is rotated proactively.
const ct0MaxAge = 4 * time.Hour

// GenerateCT0 returns a random 64-character hex CSRF token.
func GenerateCT0() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// extractCT0FromHeaders returns the ct0 value of a set-cookie response header, if any.
func extractCT0FromHeaders(headers map[string]string) string {
	for _, part := range strings.Split(headers["set-cookie"], ";") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), "ct0="); ok && v != "" {
			return v
		}
	}
	return ""
}
