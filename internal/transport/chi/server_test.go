package chi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-query/internal/keywords"
	"github.com/spigell/resume-query/internal/pipeline"
	"github.com/spigell/resume-query/internal/query"
	"github.com/spigell/resume-query/internal/resume"
)

type fakeExecutor struct {
	query  string
	result *pipeline.Result
}

func (f *fakeExecutor) Execute(_ context.Context, q string) *pipeline.Result {
	f.query = q
	return f.result
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestQuery(t *testing.T) {
	exec := &fakeExecutor{result: &pipeline.Result{
		RunID:     "run-1",
		State:     pipeline.StateDone,
		Keywords:  []string{"Python", "Kubernetes"},
		Retrieved: []string{"Ann Lee", "Bob Stone"},
		Relevant:  []string{"Ann Lee"},
		Answer:    "Ann Lee runs Python on Kubernetes.",
		Degraded:  []error{pipeline.ErrExpansionDegraded},
	}}
	handler := NewServer(exec, nil, nil).Router()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query":"Python with Kubernetes"}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Python with Kubernetes", exec.query)
	assert.JSONEq(t, `{
		"run_id": "run-1",
		"answer": "Ann Lee runs Python on Kubernetes.",
		"state": "done",
		"keywords": ["Python", "Kubernetes"],
		"candidates": 2,
		"relevant": 1,
		"degraded": ["keyword expansion failed"]
	}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestQueryAbortedRunIsNotAnHTTPError(t *testing.T) {
	exec := &fakeExecutor{result: &pipeline.Result{
		State:  pipeline.StateAborted,
		Answer: pipeline.MessageNoKeywords,
		Err:    pipeline.ErrExtractionEmpty,
	}}

	rr := httptest.NewRecorder()
	NewServer(exec, nil, nil).Router().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query":"hm"}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"run_id":"","answer":"No keywords could be extracted from the query.","state":"aborted","keywords":[],"candidates":0,"relevant":0}`, rr.Body.String())
}

func TestQueryValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "malformed", body: `{"query":`, code: "bad_request"},
		{name: "blank", body: `{"query":"  "}`, code: "validation_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{}
			rr := httptest.NewRecorder()
			NewServer(exec, nil, nil).Router().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.code)
			assert.Empty(t, exec.query)
		})
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		store  Pinger
		status int
	}{
		{name: "no store health check", status: http.StatusOK},
		{name: "store up", store: fakePinger{}, status: http.StatusOK},
		{name: "store down", store: fakePinger{err: errors.New("no reachable servers")}, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewServer(&fakeExecutor{}, tt.store, nil).Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	NewServer(&fakeExecutor{}, nil, nil).Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

type fixedExtractor []string

func (f fixedExtractor) Run(context.Context, string) keywords.Result {
	return keywords.Result{Primary: f, Terms: f}
}

type brokenStore struct{}

func (brokenStore) Find(context.Context, query.Filter) ([]resume.Record, error) {
	panic("nil cursor")
}

func TestQueryPanickingStageAnswersWithDiagnostic(t *testing.T) {
	p := pipeline.New(pipeline.Deps{Extractor: fixedExtractor{"Python"}, Store: brokenStore{}})

	rr := httptest.NewRecorder()
	NewServer(p, nil, nil).Router().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query":"python"}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"state":"aborted"`)
	assert.Contains(t, rr.Body.String(), pipeline.MessageInternalError)
}
