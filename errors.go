package twitter

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// errorClass categorizes Twitter API error responses for targeted handling.
type errorClass int

const (
	errNone          errorClass = iota
	errBanned                   // 88: rate limit abuse
	errSuspended                // 64: account suspended
	errLocked                   // 326: account locked (captcha needed)
	errCSRF                     // 353: csrf token mismatch
	errAuthExpired              // 32: could not authenticate
	errBlocked                  // 161: blocked from performing action
	errNotAuthorized            // 179, 219: not authorized
	errInternal                 // 131: Twitter internal error
)

var errorCodes = map[int]errorClass{
	88:  errBanned,
	64:  errSuspended,
	326: errLocked,
	353: errCSRF,
	32:  errAuthExpired,
	161: errBlocked,
	179: errNotAuthorized,
	219: errNotAuthorized,
	131: errInternal,
}

type apiErrors struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// classifyError inspects a response body for known Twitter error codes.
// The first recognised code wins.
func classifyError(body []byte, _ map[string]string) errorClass {
	var resp apiErrors
	if json.Unmarshal(body, &resp) != nil {
		return errNone
	}
	for _, e := range resp.Errors {
		if class, ok := errorCodes[e.Code]; ok {
			return class
		}
	}
	return errNone
}

// apiErrorMessage joins the messages of an "errors" array, or returns a
// truncated body when the payload is not an error document.
func apiErrorMessage(body []byte) string {
	var resp apiErrors
	if json.Unmarshal(body, &resp) != nil || len(resp.Errors) == 0 {
		return truncateBytes(body, 200)
	}
	msgs := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}
