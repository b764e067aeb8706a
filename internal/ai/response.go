package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseFailure reports model output that could not be read in the expected shape.
type ParseFailure struct {
	Expected string
	Raw      string
	Err      error
}

func (e *ParseFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model response is not a valid %s", e.Expected)
	}
	return fmt.Sprintf("model response is not a valid %s: %v", e.Expected, e.Err)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

var errInvalidJSON = errors.New("invalid json")

// StripCodeFence removes a surrounding ``` or ```json fence from a model response.
func StripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// ParseStringArray reads a JSON array of strings from a model response.
// Non-string and blank elements are skipped. Anything that is not a JSON array
// is reported as *ParseFailure.
func ParseStringArray(raw string) ([]string, error) {
	cleaned := StripCodeFence(raw)
	if !gjson.Valid(cleaned) {
		return nil, &ParseFailure{Expected: "json array", Raw: raw, Err: errInvalidJSON}
	}

	parsed := gjson.Parse(cleaned)
	if !parsed.IsArray() {
		return nil, &ParseFailure{Expected: "json array", Raw: raw, Err: fmt.Errorf("got %s", parsed.Type)}
	}

	return stringElements(parsed), nil
}

// ParseObject reads a JSON object from a model response.
func ParseObject(raw string) (gjson.Result, error) {
	cleaned := StripCodeFence(raw)
	if !gjson.Valid(cleaned) {
		return gjson.Result{}, &ParseFailure{Expected: "json object", Raw: raw, Err: errInvalidJSON}
	}

	parsed := gjson.Parse(cleaned)
	if !parsed.IsObject() {
		return gjson.Result{}, &ParseFailure{Expected: "json object", Raw: raw, Err: fmt.Errorf("got %s", parsed.Type)}
	}

	return parsed, nil
}

// StringList returns the string elements of the array stored under key.
// A missing key or a non-array value yields nil.
func StringList(obj gjson.Result, key string) []string {
	value := obj.Get(key)
	if !value.IsArray() {
		return nil
	}
	return stringElements(value)
}

func stringElements(arr gjson.Result) []string {
	items := arr.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type != gjson.String {
			continue
		}
		s := strings.TrimSpace(item.String())
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
