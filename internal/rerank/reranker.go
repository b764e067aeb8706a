package rerank

import (
	"context"
	_ "embed"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/ai"
	"github.com/spigell/resume-query/internal/resume"
)

const (
	Stage = "rerank"

	systemInstruction = "You are an assistant that judges how relevant candidate resumes are to a recruiter's query. You answer with JSON only."
)

//go:embed rerank.md
var promptTemplate string

// Partition is the model's verdict over candidate names.
type Partition struct {
	Relevant   []string
	Irrelevant []string
}

// Result is the outcome of a rerank call.
type Result struct {
	Records   []resume.Record
	Partition Partition
	// Err is set when the call or the response failed and Records is the unfiltered input.
	Err error
}

// Reranker asks the language model to split candidates into relevant and irrelevant ones.
type Reranker struct {
	completer ai.Completer
	logger    *zap.Logger
}

func New(completer ai.Completer, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{completer: completer, logger: logger}
}

// Run performs the rerank call. Any failure returns every candidate unchanged.
func (r *Reranker) Run(ctx context.Context, query string, candidates []resume.Record) Result {
	if len(candidates) == 0 {
		return Result{}
	}

	partition, err := r.partition(ctx, query, candidates)
	if err != nil {
		r.logger.Warn("reranking failed, keeping all candidates",
			zap.Int("candidates", len(candidates)),
			zap.Error(err),
		)
		return Result{Records: candidates, Err: err}
	}

	relevant := Apply(partition, candidates)

	r.logger.Info("candidates reranked",
		zap.Strings("sent", resume.Names(candidates)),
		zap.Strings("relevant_names", partition.Relevant),
		zap.Strings("irrelevant_names", partition.Irrelevant),
		zap.Int("kept", len(relevant)),
	)

	return Result{Records: relevant, Partition: partition}
}

func (r *Reranker) partition(ctx context.Context, query string, candidates []resume.Record) (Partition, error) {
	serialized, err := resume.Serialize(candidates)
	if err != nil {
		return Partition{}, err
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{QUERY}}", strings.TrimSpace(query))
	prompt = strings.ReplaceAll(prompt, "{{RESUMES}}", serialized)

	raw, err := r.completer.Complete(ctx, ai.Request{Stage: Stage, System: systemInstruction, Prompt: prompt})
	if err != nil {
		return Partition{}, err
	}

	obj, err := ai.ParseObject(raw)
	if err != nil {
		return Partition{}, err
	}

	return Partition{
		Relevant:   ai.StringList(obj, "relevant_names"),
		Irrelevant: ai.StringList(obj, "irrelevant_names"),
	}, nil
}

// Apply keeps the candidates named in p.Relevant, in input order. A name that
// is also listed as irrelevant is still kept.
func Apply(p Partition, candidates []resume.Record) []resume.Record {
	relevant := nameSet(p.Relevant)

	kept := make([]resume.Record, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := relevant[normalize(c.Name)]; ok {
			kept = append(kept, c)
		}
	}
	return kept
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[normalize(n)] = struct{}{}
	}
	return set
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
