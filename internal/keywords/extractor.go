package keywords

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/ai"
)

const (
	StageExtract = "extract"
	StageExpand  = "expand"

	systemInstruction = "You are a helpful assistant that extracts keywords from natural language queries for robust resume document search."
)

//go:embed extract.md
var extractTemplate string

//go:embed expand.md
var expandTemplate string

// Result holds the terms of both extraction passes.
type Result struct {
	Primary []string
	Terms   []string
	// ExpansionErr is set when the expansion pass failed and Terms fell back to Primary.
	ExpansionErr error
}

// Extractor turns a natural-language query into search terms with two model calls.
type Extractor struct {
	completer ai.Completer
	expand    bool
	logger    *zap.Logger
}

// New creates an Extractor. When expand is false only the primary pass runs.
func New(completer ai.Completer, expand bool, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{completer: completer, expand: expand, logger: logger}
}

// Run performs the primary pass and, if it produced terms, the expansion pass.
// A failed primary pass yields an empty Result; a failed expansion keeps the primary terms.
func (e *Extractor) Run(ctx context.Context, query string) Result {
	primary, err := e.primary(ctx, query)
	if err != nil {
		e.logger.Warn("keyword extraction failed", zap.Error(err))
		return Result{}
	}
	if len(primary) == 0 {
		e.logger.Warn("keyword extraction returned no keywords")
		return Result{}
	}

	e.logger.Info("keywords extracted", zap.Strings("keywords", primary))

	if !e.expand {
		return Result{Primary: primary, Terms: primary}
	}

	expanded, err := e.expansion(ctx, primary)
	if err != nil {
		e.logger.Warn("keyword expansion failed, using primary keywords", zap.Error(err))
		return Result{Primary: primary, Terms: primary, ExpansionErr: err}
	}

	terms := merge(primary, expanded)
	e.logger.Info("keywords expanded", zap.Strings("keywords", terms))

	return Result{Primary: primary, Terms: terms}
}

func (e *Extractor) primary(ctx context.Context, query string) ([]string, error) {
	prompt := strings.ReplaceAll(extractTemplate, "{{QUERY}}", strings.TrimSpace(query))

	raw, err := e.completer.Complete(ctx, ai.Request{Stage: StageExtract, System: systemInstruction, Prompt: prompt})
	if err != nil {
		return nil, err
	}

	return ai.ParseStringArray(raw)
}

func (e *Extractor) expansion(ctx context.Context, primary []string) ([]string, error) {
	encoded, err := json.Marshal(primary)
	if err != nil {
		return nil, err
	}

	prompt := strings.ReplaceAll(expandTemplate, "{{KEYWORDS}}", string(encoded))

	raw, err := e.completer.Complete(ctx, ai.Request{Stage: StageExpand, System: systemInstruction, Prompt: prompt})
	if err != nil {
		return nil, err
	}

	expanded, err := ai.ParseStringArray(raw)
	if err != nil {
		return nil, err
	}
	if len(expanded) == 0 {
		return nil, &ai.ParseFailure{Expected: "non-empty json array", Raw: raw}
	}

	return expanded, nil
}

// merge keeps every primary term first and appends the expanded terms not seen yet.
func merge(primary, expanded []string) []string {
	seen := make(map[string]struct{}, len(primary)+len(expanded))
	out := make([]string, 0, len(primary)+len(expanded))
	for _, list := range [][]string{primary, expanded} {
		for _, term := range list {
			key := strings.ToLower(term)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}
