package xtid

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zero key bytes pin every index to row 0, frame 0 and t=0.
const testHome = `<html><head>
<meta name="twitter-site-verification" content="AAAAAAAAAAAAAAAAAAAAAA==">
</head><body>
<svg id="loading-x-anim-0" viewBox="0 0 10 10"><path d="M 10,30 C 1 2 3 4 5 6 7 8 9 10 11" fill="#1d9bf008"></path></svg>
<script>{"ondemand.s":"abc123"}</script>
</body></html>`

const testJS = `x=parseInt(a[2], 16);y=parseInt(b[7], 16);z=parseInt(c[9], 16)`

func TestFloatToHex(t *testing.T) {
	cases := map[float64]string{
		0:     "",
		1:     "1",
		15:    "F",
		255:   "FF",
		0.5:   ".8",
		16.25: "10.4",
	}
	for in, want := range cases {
		assert.Equal(t, want, floatToHex(in), "floatToHex(%v)", in)
	}
}

func TestJSRound(t *testing.T) {
	assert.Equal(t, 3.0, jsRound(2.5))
	assert.Equal(t, 2.0, jsRound(2.4))
	assert.Equal(t, 0.0, jsRound(0))
}

func TestCubicBezierEndpoints(t *testing.T) {
	c := cubicBezier{0.25, 0.1, 0.25, 1}
	assert.Equal(t, 0.0, c.at(0))
	assert.InDelta(t, 1.0, c.at(1), 1e-9)
	mid := c.at(0.5)
	assert.Greater(t, mid, 0.5)
	assert.Less(t, mid, 1.0)
}

func TestKeyExtraction(t *testing.T) {
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAA==", verificationKey(testHome))
	assert.Equal(t, ondemandBase+"abc123a.js", ondemandURL(testHome))
	assert.Empty(t, ondemandURL("<html></html>"))

	row, idx := keyIndices(testJS)
	assert.Equal(t, 2, row)
	assert.Equal(t, []int{7, 9}, idx)

	frames := animationFrames(testHome)
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}}, frames[0])
	assert.Nil(t, frames[1])
}

func TestNewTransaction(t *testing.T) {
	tx, err := NewTransaction(testHome, testJS)
	require.NoError(t, err)
	assert.Equal(t, "123100100", tx.animation)

	_, err = NewTransaction("<html></html>", testJS)
	assert.Error(t, err)
	_, err = NewTransaction(testHome, "")
	assert.Error(t, err)
}

func TestGenerateIDLayout(t *testing.T) {
	tx := &Transaction{key: []byte{1, 2, 3, 4, 5, 6}, animation: "abc"}
	now := time.UnixMilli(epochMillis + 5000)

	id := tx.generate("GET", "/i/api/graphql/x/TweetDetail?variables=1", now, 0x5a)
	raw, err := base64.RawStdEncoding.DecodeString(id)
	require.NoError(t, err)
	require.Len(t, raw, 1+6+4+16+1)

	assert.Equal(t, byte(0x5a), raw[0])
	plain := make([]byte, len(raw)-1)
	for i, b := range raw[1:] {
		plain[i] = b ^ raw[0]
	}
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, plain[:6])
	assert.Equal(t, []byte{5, 0, 0, 0}, plain[6:10])
	assert.Equal(t, byte(trailerByte), plain[len(plain)-1])

	// the query string does not take part in the hash
	same := tx.generate("GET", "/i/api/graphql/x/TweetDetail", now, 0x5a)
	assert.Equal(t, id, same)
}

func TestManager(t *testing.T) {
	pages := map[string]string{
		homeURL:                     testHome,
		ondemandBase + "abc123a.js": testJS,
	}
	calls := 0
	m := NewManager(func(url string) (string, error) {
		calls++
		if body, ok := pages[url]; ok {
			return body, nil
		}
		return "", errors.New("not found")
	})

	id, err := m.GenerateID("POST", "/i/api/graphql/x/CreateTweet")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 2, calls)

	_, err = m.GenerateID("POST", "/i/api/graphql/x/CreateTweet")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "fresh keys are reused")

	// stale keys survive a failed refresh
	m.RefreshInterval = 0
	delete(pages, homeURL)
	_, err = m.GenerateID("GET", "/")
	assert.NoError(t, err)
}

func TestManagerUninitialized(t *testing.T) {
	m := NewManager(func(string) (string, error) { return "", errors.New("offline") })
	_, err := m.GenerateID("GET", "/")
	assert.Error(t, err)
}
