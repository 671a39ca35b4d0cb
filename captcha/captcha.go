// Package captcha solves the Arkose challenges Twitter raises during login.
package captcha

import "context"

// Challenge identifies one FunCaptcha instance.
type Challenge struct {
	SiteKey string // Arkose public key
	PageURL string // page the challenge was raised on
}

// Solver turns a challenge into a token Twitter accepts.
type Solver interface {
	Solve(ctx context.Context, ch Challenge) (string, error)
}

// New returns a Capsolver-backed Solver, or nil when apiKey is empty.
func New(apiKey string) Solver {
	if apiKey == "" {
		return nil
	}
	return NewCapsolver(apiKey)
}
