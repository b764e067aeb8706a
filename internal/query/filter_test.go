package query

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestBuildConditionCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		terms []string
	}{
		{name: "single", terms: []string{"python"}},
		{name: "two", terms: []string{"python", "kubernetes"}},
		{name: "repeats kept", terms: []string{"go", "go", "golang"}},
		{name: "empty", terms: nil},
	}

	allowed := make(map[string]bool, len(Fields))
	for _, f := range Fields {
		allowed[f] = true
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			filter := Build(tt.terms)
			if want := len(tt.terms) * len(Fields); filter.Len() != want {
				t.Fatalf("expected %d conditions, got %d", want, filter.Len())
			}
			for _, c := range filter.Conditions {
				if !allowed[c.Field] {
					t.Fatalf("unexpected field %q", c.Field)
				}
			}
		})
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	t.Parallel()

	terms := []string{"python", "kubernetes", "site reliability"}
	first := Build(terms)
	second := Build(terms)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical filters")
	}
	if !reflect.DeepEqual(first.BSON(), second.BSON()) {
		t.Fatalf("expected identical bson renderings")
	}
	if !reflect.DeepEqual(first.Terms(), terms) {
		t.Fatalf("unexpected terms: %v", first.Terms())
	}
}

func TestEmptyFilterMatchesNothing(t *testing.T) {
	t.Parallel()

	filter := Build(nil)
	if !filter.IsEmpty() {
		t.Fatalf("expected empty filter")
	}
	if filter.Matches(map[string]any{"summary": "anything"}) {
		t.Fatalf("empty filter must not match")
	}
}

func TestBSON(t *testing.T) {
	t.Parallel()

	doc := Build([]string{"c++"}).BSON()
	if len(doc) != 1 || doc[0].Key != "$or" {
		t.Fatalf("unexpected filter: %v", doc)
	}

	or, ok := doc[0].Value.(bson.A)
	if !ok || len(or) != len(Fields) {
		t.Fatalf("unexpected $or value: %v", doc[0].Value)
	}

	first := or[0].(bson.D)[0]
	if first.Key != "summary" {
		t.Fatalf("unexpected field: %s", first.Key)
	}
	re := first.Value.(bson.Regex)
	if re.Pattern != `c\+\+` || re.Options != "i" {
		t.Fatalf("unexpected regex: %+v", re)
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"name":    "Ann Lee",
		"summary": "Backend engineer",
		"skills":  []any{"Python", "Docker"},
		"experience": []any{
			map[string]any{"title": "SRE", "company": "Acme", "description": "Operated KUBERNETES clusters"},
		},
		"certifications": []any{map[string]any{"title": "CKA", "issuer": "CNCF"}},
	}

	tests := []struct {
		term   string
		expect bool
	}{
		{term: "python", expect: true},
		{term: "kubernetes", expect: true},
		{term: "cncf", expect: true},
		{term: "ann", expect: true},
		{term: "rust", expect: false},
		{term: "acme corp", expect: false},
	}

	for _, tt := range tests {
		if got := Build([]string{tt.term}).Matches(doc); got != tt.expect {
			t.Fatalf("term %q: expected %v, got %v", tt.term, tt.expect, got)
		}
	}

	typed := map[string]any{"skills": []string{"Go"}}
	if !Build([]string{"go"}).Matches(typed) {
		t.Fatalf("expected match in string slice")
	}
}
