// Package batch runs a list of independent queries through the retrieval
// stages with paced starts and bounded concurrency.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spigell/resume-query/internal/pipeline"
	"github.com/spigell/resume-query/internal/resume"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultConcurrency = 1
)

type Retriever interface {
	Retrieve(ctx context.Context, query string) *pipeline.Retrieval
}

// Item is one line of the results file.
type Item struct {
	Query        string   `json:"query"`
	Keywords     []string `json:"keywords"`
	MatchedNames []string `json:"matched_names"`
	Error        string   `json:"error,omitempty"`
}

// Runner executes queries one limiter token at a time.
type Runner struct {
	retriever   Retriever
	limiter     *rate.Limiter
	concurrency int
	logger      *zap.Logger
}

// NewLimiter returns a limiter that lets one query start per interval.
// A non-positive interval disables pacing.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func New(retriever Retriever, limiter *rate.Limiter, concurrency int, logger *zap.Logger) *Runner {
	if limiter == nil {
		limiter = NewLimiter(DefaultInterval)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{retriever: retriever, limiter: limiter, concurrency: concurrency, logger: logger}
}

// Run processes queries and returns one Item per started query, in input order.
// Per-query failures are reported on the Item; the error is only set when ctx ends early.
func (r *Runner) Run(ctx context.Context, queries []string) ([]Item, error) {
	items := make([]Item, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	started := 0
	var waitErr error
	for i, q := range queries {
		if err := r.limiter.Wait(gctx); err != nil {
			waitErr = err
			break
		}
		started++

		g.Go(func() error {
			items[i] = r.one(gctx, q)
			return nil
		})
	}

	_ = g.Wait()

	r.logger.Info("batch finished", zap.Int("queries", len(queries)), zap.Int("processed", started))

	if waitErr != nil {
		return items[:started], fmt.Errorf("batch interrupted after %d of %d queries: %w", started, len(queries), waitErr)
	}
	return items, nil
}

func (r *Runner) one(ctx context.Context, q string) Item {
	item := Item{Query: q, Keywords: []string{}, MatchedNames: []string{}}

	res := r.retriever.Retrieve(ctx, q)
	if len(res.Keywords) > 0 {
		item.Keywords = res.Keywords
	}
	if names := resume.Names(res.Records); len(names) > 0 {
		item.MatchedNames = names
	}

	if res.Err != nil && !errors.Is(res.Err, pipeline.ErrRetrievalEmpty) {
		item.Error = res.Err.Error()
		r.logger.Warn("query failed", zap.String("query", q), zap.Error(res.Err))
		return item
	}

	r.logger.Info("query processed",
		zap.String("query", q),
		zap.Strings("keywords", item.Keywords),
		zap.Int("matched", len(item.MatchedNames)),
	)
	return item
}

// LoadQueries reads a JSON array of query strings. Blank entries are skipped.
func LoadQueries(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse queries file %s: %w", path, err)
	}

	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	return queries, nil
}

// WriteResults stores items as an indented JSON array.
func WriteResults(path string, items []Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
