package ai

import (
	"errors"
	"reflect"
	"testing"
)

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "plain", input: `  ["go"] `, expect: `["go"]`},
		{name: "json fence", input: "```json\n[\"go\"]\n```", expect: `["go"]`},
		{name: "bare fence", input: "```\n{\"a\": 1}\n```", expect: `{"a": 1}`},
		{name: "unterminated fence", input: "```json\n[\"go\"]", expect: `["go"]`},
		{name: "inline backticks", input: "`[1]`", expect: `[1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := StripCodeFence(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestParseStringArray(t *testing.T) {
	t.Parallel()

	got, err := ParseStringArray("```json\n[\"python\", 3, \"  \", \" kubernetes \"]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"python", "kubernetes"}) {
		t.Fatalf("unexpected terms: %v", got)
	}

	empty, err := ParseStringArray("[]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no terms, got %v", empty)
	}

	for _, raw := range []string{"not json", `{"terms": ["go"]}`, `"go"`, ""} {
		_, err := ParseStringArray(raw)
		var failure *ParseFailure
		if !errors.As(err, &failure) {
			t.Fatalf("expected ParseFailure for %q, got %v", raw, err)
		}
		if failure.Raw != raw {
			t.Fatalf("expected raw response to be kept, got %q", failure.Raw)
		}
	}
}

func TestParseObject(t *testing.T) {
	t.Parallel()

	obj, err := ParseObject("```json\n{\"relevant_names\": [\"Ann Lee\"], \"irrelevant_names\": \"Bob\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := StringList(obj, "relevant_names"); !reflect.DeepEqual(got, []string{"Ann Lee"}) {
		t.Fatalf("unexpected relevant names: %v", got)
	}
	if got := StringList(obj, "irrelevant_names"); got != nil {
		t.Fatalf("expected nil for non-array value, got %v", got)
	}
	if got := StringList(obj, "missing"); got != nil {
		t.Fatalf("expected nil for missing key, got %v", got)
	}

	for _, raw := range []string{"not json", `["Ann Lee"]`} {
		_, err := ParseObject(raw)
		var failure *ParseFailure
		if !errors.As(err, &failure) {
			t.Fatalf("expected ParseFailure for %q, got %v", raw, err)
		}
	}
}
