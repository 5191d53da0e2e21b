package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when a body holds no decodable JSON document.
var ErrParseFailed = errors.New("failed to parse json body")

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseJSON decodes body into T. Bodies that wrap the document in a
// markdown code fence are unwrapped and retried.
func ParseJSON[T any](body []byte) (T, error) {
	var result T

	trimmed := strings.TrimSpace(string(body))
	if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
		return result, nil
	}

	if m := fencePattern.FindStringSubmatch(trimmed); len(m) == 2 {
		if err := json.Unmarshal([]byte(m[1]), &result); err == nil {
			return result, nil
		}
	}

	if len(trimmed) > 256 {
		trimmed = trimmed[:256] + "..."
	}
	return result, fmt.Errorf("%w: %s", ErrParseFailed, trimmed)
}
