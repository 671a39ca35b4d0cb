// Package xtid computes the x-client-transaction-id header the x.com web
// client attaches to API calls.
package xtid

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	keyword     = "obfiowerehiring"
	trailerByte = 3
	epochMillis = 1682924400000
	totalTime   = 4096.0
)

// Transaction holds the key material scraped from one x.com page load.
type Transaction struct {
	key       []byte
	animation string
}

// NewTransaction derives the key material from the home page HTML and the
// ondemand script it references.
func NewTransaction(homeHTML, ondemandJS string) (*Transaction, error) {
	encoded := verificationKey(homeHTML)
	if encoded == "" {
		return nil, errors.New("twitter-site-verification meta tag not found")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode verification key: %w", err)
	}
	if len(key) < 6 {
		return nil, fmt.Errorf("verification key too short (%d bytes)", len(key))
	}

	rowIdx, timeIdx := keyIndices(ondemandJS)
	if len(timeIdx) == 0 {
		return nil, errors.New("no key byte indices in ondemand script")
	}

	row := 0
	if rowIdx < len(key) {
		row = int(key[rowIdx]) % 16
	}
	frameTime := 1.0
	for _, i := range timeIdx {
		if i < len(key) {
			frameTime *= float64(int(key[i]) % 16)
		}
	}
	frameTime = jsRound(frameTime/10) * 10

	rows := animationFrames(homeHTML)[int(key[5])%4]
	if row >= len(rows) {
		return nil, errors.New("animation frame missing from home page")
	}

	return &Transaction{key: key, animation: animate(rows[row], frameTime/totalTime)}, nil
}

// GenerateID returns a transaction id for method and path. Any query string is ignored.
func (t *Transaction) GenerateID(method, path string) string {
	return t.generate(method, path, time.Now(), byte(rand.IntN(256)))
}

func (t *Transaction) generate(method, path string, now time.Time, salt byte) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	ts := int(now.UnixMilli()-epochMillis) / 1000
	hash := sha256.Sum256(fmt.Appendf(nil, "%s!%s!%d%s%s", method, path, ts, keyword, t.animation))

	plain := make([]byte, 0, len(t.key)+4+16+1)
	plain = append(plain, t.key...)
	plain = append(plain, byte(ts), byte(ts>>8), byte(ts>>16), byte(ts>>24))
	plain = append(plain, hash[:16]...)
	plain = append(plain, trailerByte)

	out := make([]byte, len(plain)+1)
	out[0] = salt
	for i, b := range plain {
		out[i+1] = b ^ salt
	}
	return base64.RawStdEncoding.EncodeToString(out)
}
