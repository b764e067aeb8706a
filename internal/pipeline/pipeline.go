// Package pipeline answers recruiter questions over the resume store:
// keywords are extracted from the question, turned into a pattern filter,
// matched against the store, reranked by the language model and finally
// summarized into a grounded answer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/answer"
	"github.com/spigell/resume-query/internal/keywords"
	"github.com/spigell/resume-query/internal/logger"
	"github.com/spigell/resume-query/internal/metrics"
	"github.com/spigell/resume-query/internal/query"
	"github.com/spigell/resume-query/internal/rerank"
	"github.com/spigell/resume-query/internal/resume"
)

// State is a step of a pipeline run.
type State string

const (
	StateStart        State = "start"
	StateExtracting   State = "extracting"
	StateBuilding     State = "building"
	StateRetrieving   State = "retrieving"
	StateReranking    State = "reranking"
	StateSynthesizing State = "synthesizing"
	StateDone         State = "done"
	StateAborted      State = "aborted"
)

type Extractor interface {
	Run(ctx context.Context, query string) keywords.Result
}

type Store interface {
	Find(ctx context.Context, filter query.Filter) ([]resume.Record, error)
}

type Reranker interface {
	Run(ctx context.Context, query string, candidates []resume.Record) rerank.Result
}

type Synthesizer interface {
	Run(ctx context.Context, query string, candidates []resume.Record) answer.Result
}

// Deps aggregates the collaborators of a pipeline.
type Deps struct {
	Extractor   Extractor
	Store       Store
	Reranker    Reranker
	Synthesizer Synthesizer
	Logger      *zap.Logger
}

// Pipeline runs queries. It holds no per-query state and is safe for concurrent use.
type Pipeline struct {
	extractor   Extractor
	store       Store
	reranker    Reranker
	synthesizer Synthesizer
	logger      *zap.Logger
}

func New(deps Deps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		extractor:   deps.Extractor,
		store:       deps.Store,
		reranker:    deps.Reranker,
		synthesizer: deps.Synthesizer,
		logger:      log,
	}
}

// Result describes a finished run.
type Result struct {
	RunID string
	Query string
	// State is StateDone or StateAborted.
	State State
	// AbortedAt is the state the run was in when it was aborted.
	AbortedAt  State
	Keywords   []string
	Conditions int
	Retrieved  []string
	Relevant   []string
	Answer     string
	// Err is the reason of an aborted run.
	Err error
	// Degraded lists recovered stage failures.
	Degraded []error
	Duration time.Duration
}

// Retrieval is the outcome of the extraction and retrieval stages alone.
type Retrieval struct {
	Keywords []string
	Filter   query.Filter
	Records  []resume.Record
	Err      error
	Degraded []error
}

// Run answers query. It always returns text: the answer or a diagnostic.
func (p *Pipeline) Run(ctx context.Context, q string) string {
	return p.Execute(ctx, q).Answer
}

// Execute runs every stage and returns the full trace of the run. A panic in
// any stage aborts the run with MessageInternalError.
func (p *Pipeline) Execute(ctx context.Context, q string) (res *Result) {
	start := time.Now()
	res = &Result{RunID: uuid.NewString(), Query: strings.TrimSpace(q), State: StateStart}
	log := logger.WithRun(p.logger, res.RunID, res.Query)

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", zap.Any("panic", r), zap.String("state", string(res.State)))
			p.abort(res, log, fmt.Errorf("%w: %v", ErrInternal, r), MessageInternalError)
		}

		res.Duration = time.Since(start)
		metrics.PipelineRunsTotal.WithLabelValues(string(res.State)).Inc()
		for _, err := range res.Degraded {
			metrics.PipelineDegradationsTotal.WithLabelValues(degradationKind(err)).Inc()
		}
		log.Info("pipeline finished",
			zap.String("state", string(res.State)),
			zap.String("aborted_at", string(res.AbortedAt)),
			zap.Int("degraded", len(res.Degraded)),
			zap.Duration("duration", res.Duration),
		)
	}()

	if res.Query == "" {
		p.abort(res, log, ErrEmptyQuery, MessageEmptyQuery)
		return res
	}

	retrieval := p.retrieve(ctx, res, log)
	res.Degraded = append(res.Degraded, retrieval.Degraded...)
	if retrieval.Err != nil {
		p.abort(res, log, retrieval.Err, diagnostic(retrieval.Err))
		return res
	}

	res.State = StateReranking
	ranked := p.reranker.Run(ctx, res.Query, retrieval.Records)
	if ranked.Err != nil {
		res.Degraded = append(res.Degraded, fmt.Errorf("%w: %w", ErrRerankDegraded, ranked.Err))
	}
	res.Relevant = resume.Names(ranked.Records)
	metrics.PipelineCandidates.WithLabelValues("relevant").Observe(float64(len(ranked.Records)))

	log.Info("pipeline step",
		zap.String("name", string(StateReranking)),
		zap.Int("initial", len(retrieval.Records)),
		zap.Int("dropped", len(retrieval.Records)-len(ranked.Records)),
		zap.Int("left", len(ranked.Records)),
	)

	res.State = StateSynthesizing
	generated := p.synthesizer.Run(ctx, res.Query, ranked.Records)
	if generated.Err != nil {
		res.Degraded = append(res.Degraded, fmt.Errorf("%w: %w", ErrSynthesisFailed, generated.Err))
	}

	res.Answer = generated.Text
	res.State = StateDone
	return res
}

// Retrieve runs the extraction, building and retrieval stages only. A panic
// in a stage is reported as ErrInternal on the Retrieval.
func (p *Pipeline) Retrieve(ctx context.Context, q string) (out *Retrieval) {
	res := &Result{RunID: uuid.NewString(), Query: strings.TrimSpace(q), State: StateStart}
	log := logger.WithRun(p.logger, res.RunID, res.Query)

	defer func() {
		if r := recover(); r != nil {
			log.Error("retrieval panicked", zap.Any("panic", r), zap.String("state", string(res.State)))
			out = &Retrieval{Keywords: res.Keywords, Err: fmt.Errorf("%w: %v", ErrInternal, r)}
		}
	}()

	if res.Query == "" {
		return &Retrieval{Err: ErrEmptyQuery}
	}
	return p.retrieve(ctx, res, log)
}

func (p *Pipeline) retrieve(ctx context.Context, res *Result, log *zap.Logger) *Retrieval {
	out := &Retrieval{}

	res.State = StateExtracting
	extracted := p.extractor.Run(ctx, res.Query)
	if extracted.ExpansionErr != nil {
		out.Degraded = append(out.Degraded, fmt.Errorf("%w: %w", ErrExpansionDegraded, extracted.ExpansionErr))
	}
	if len(extracted.Terms) == 0 {
		out.Err = ErrExtractionEmpty
		return out
	}
	out.Keywords = extracted.Terms
	res.Keywords = extracted.Terms

	res.State = StateBuilding
	out.Filter = query.Build(extracted.Terms)
	res.Conditions = out.Filter.Len()

	log.Debug("filter built", zap.Int("conditions", out.Filter.Len()), zap.Strings("terms", out.Filter.Terms()))

	res.State = StateRetrieving
	records, err := p.store.Find(ctx, out.Filter)
	if err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
		return out
	}
	metrics.PipelineCandidates.WithLabelValues("retrieved").Observe(float64(len(records)))

	if len(records) == 0 {
		out.Err = ErrRetrievalEmpty
		return out
	}

	out.Records = records
	res.Retrieved = resume.Names(records)

	log.Info("resumes retrieved", zap.Int("count", len(records)), zap.Strings("names", res.Retrieved))

	return out
}

func (p *Pipeline) abort(res *Result, log *zap.Logger, err error, message string) {
	res.AbortedAt = res.State
	res.State = StateAborted
	res.Err = err
	res.Answer = message

	log.Info("pipeline aborted", zap.String("at", string(res.AbortedAt)), zap.Error(err))
}

func diagnostic(err error) string {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return MessageEmptyQuery
	case errors.Is(err, ErrExtractionEmpty):
		return MessageNoKeywords
	case errors.Is(err, ErrRetrievalEmpty):
		return MessageNoRecords
	case errors.Is(err, ErrRetrievalFailed):
		cause := strings.TrimPrefix(err.Error(), ErrRetrievalFailed.Error()+": ")
		return fmt.Sprintf("%s: %s", MessageSearchFailed, cause)
	default:
		return MessageInternalError
	}
}
