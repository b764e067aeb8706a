// Package query turns search terms into a disjunctive pattern filter over the
// searchable resume fields.
package query

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Fields is the fixed set of document paths every term is matched against.
// Dotted paths descend into nested documents and arrays of documents.
var Fields = []string{
	"summary",
	"skills",
	"projects.description",
	"projects.title",
	"experience.description",
	"experience.title",
	"experience.company",
	"education.institution",
	"certifications.title",
	"certifications.issuer",
	"name",
}

// Condition is a case-insensitive substring match of Term against Field.
type Condition struct {
	Field string
	Term  string
}

// Filter is the logical OR of its conditions. An empty filter matches nothing.
type Filter struct {
	Conditions []Condition
}

// Build emits one condition per term and field, keeping term order and repeats.
func Build(terms []string) Filter {
	conditions := make([]Condition, 0, len(terms)*len(Fields))
	for _, term := range terms {
		for _, field := range Fields {
			conditions = append(conditions, Condition{Field: field, Term: term})
		}
	}
	return Filter{Conditions: conditions}
}

func (f Filter) Len() int { return len(f.Conditions) }

func (f Filter) IsEmpty() bool { return len(f.Conditions) == 0 }

// Terms returns the distinct terms of the filter in first-seen order.
func (f Filter) Terms() []string {
	seen := make(map[string]struct{})
	terms := make([]string, 0)
	for _, c := range f.Conditions {
		if _, ok := seen[c.Term]; ok {
			continue
		}
		seen[c.Term] = struct{}{}
		terms = append(terms, c.Term)
	}
	return terms
}

// BSON renders the filter as a MongoDB $or of case-insensitive $regex
// conditions. Terms are quoted so that they match literally.
func (f Filter) BSON() bson.D {
	or := make(bson.A, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		or = append(or, bson.D{{Key: c.Field, Value: bson.Regex{Pattern: regexp.QuoteMeta(c.Term), Options: "i"}}})
	}
	return bson.D{{Key: "$or", Value: or}}
}

// Matches evaluates the filter against a decoded JSON document.
func (f Filter) Matches(doc map[string]any) bool {
	for _, c := range f.Conditions {
		if c.Matches(doc) {
			return true
		}
	}
	return false
}

// Matches reports whether any string value under the condition's field path
// contains the term, ignoring case.
func (c Condition) Matches(doc map[string]any) bool {
	needle := strings.ToLower(c.Term)
	for _, value := range lookup(doc, strings.Split(c.Field, ".")) {
		if s, ok := value.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// lookup collects every value at path, flattening arrays along the way.
func lookup(value any, path []string) []any {
	switch typed := value.(type) {
	case []any:
		var out []any
		for _, item := range typed {
			out = append(out, lookup(item, path)...)
		}
		return out
	case []string:
		if len(path) > 0 {
			return nil
		}
		out := make([]any, 0, len(typed))
		for _, s := range typed {
			out = append(out, s)
		}
		return out
	case map[string]any:
		if len(path) == 0 {
			return nil
		}
		next, ok := typed[path[0]]
		if !ok {
			return nil
		}
		return lookup(next, path[1:])
	default:
		if len(path) > 0 {
			return nil
		}
		return []any{value}
	}
}
