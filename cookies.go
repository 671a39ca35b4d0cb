package twitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/buger/jsonparser"
)

// LoadCookieFile reads a cookie jar from disk. See ParseCookies for accepted formats.
func LoadCookieFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	cookies, err := ParseCookies(data)
	if err != nil {
		return nil, fmt.Errorf("cookie file %s: %w", path, err)
	}
	return cookies, nil
}

// ParseCookies accepts either a flat {"name": "value"} object or the list
// produced by browser cookie-export extensions ([{"name": ..., "value": ...}, ...]).
func ParseCookies(data []byte) (map[string]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty cookie data")
	}
	switch data[0] {
	case '{':
		return parseCookieObject(data)
	case '[':
		return parseCookieList(data)
	default:
		return nil, fmt.Errorf("cookie data must be a JSON object or array")
	}
}

func parseCookieObject(data []byte) (map[string]string, error) {
	cookies := make(map[string]string)
	err := jsonparser.ObjectEach(data, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
		if dt != jsonparser.String {
			return fmt.Errorf("cookie %q: value is %s, want string", key, dt)
		}
		v, err := jsonparser.ParseString(value)
		if err != nil {
			return fmt.Errorf("cookie %q: %w", key, err)
		}
		cookies[string(key)] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cookies, nil
}

func parseCookieList(data []byte) (map[string]string, error) {
	cookies := make(map[string]string)
	var entryErr error
	_, err := jsonparser.ArrayEach(data, func(entry []byte, dt jsonparser.ValueType, offset int, _ error) {
		if entryErr != nil {
			return
		}
		if dt != jsonparser.Object {
			entryErr = fmt.Errorf("cookie entry at offset %d is not an object", offset)
			return
		}
		name, err := jsonparser.GetString(entry, "name")
		if err != nil || name == "" {
			entryErr = fmt.Errorf("cookie entry at offset %d has no name", offset)
			return
		}
		value, err := jsonparser.GetString(entry, "value")
		if err != nil {
			entryErr = fmt.Errorf("cookie %q has no value", name)
			return
		}
		cookies[name] = value
	})
	if err != nil {
		return nil, err
	}
	if entryErr != nil {
		return nil, entryErr
	}
	return cookies, nil
}

// ConvertCookies rewrites a cookie jar in either accepted format into the flat
// {"name": "value"} form, indented for humans.
func ConvertCookies(data []byte) ([]byte, error) {
	cookies, err := ParseCookies(data)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(cookies, "", "    ")
}
