package reasoning

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSONObject = errors.New("no JSON object found in response")

// ExtractJSONObject returns the first balanced {...} span in text. Braces
// inside JSON string literals are ignored so nested and quoted braces are safe.
func ExtractJSONObject(text string) (string, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchingBrace(text, start); end > start {
			return text[start : end+1], nil
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSONObject
}

// matchingBrace returns the index of the brace closing the one at start, or -1.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// -----------------------------------------------------------------------------

// ParseJSONObject extracts and decodes the first object in text.
func ParseJSONObject(text string) (map[string]interface{}, error) {
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("failed to decode JSON from response: %w", err)
	}
	return obj, nil
}

// UnwrapResult returns obj["result"] when present, else obj itself.
func UnwrapResult(obj map[string]interface{}) interface{} {
	if v, ok := obj["result"]; ok {
		return v
	}
	return obj
}
