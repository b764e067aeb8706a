package pipeline

import "errors"

// Fatal errors abort the run with a diagnostic answer.
var (
	ErrEmptyQuery      = errors.New("query is empty")
	ErrExtractionEmpty = errors.New("no keywords extracted")
	ErrRetrievalEmpty  = errors.New("no matching resumes")
	ErrRetrievalFailed = errors.New("resume search failed")
	// ErrInternal wraps a recovered panic.
	ErrInternal = errors.New("internal error")
)

// Degradation errors are recovered inside the run and recorded on the Result.
var (
	ErrExpansionDegraded = errors.New("keyword expansion failed")
	ErrRerankDegraded    = errors.New("reranking failed")
	ErrSynthesisFailed   = errors.New("answer generation failed")
)

// Diagnostic answers returned when a run is aborted.
const (
	MessageEmptyQuery    = "Please provide a question about the candidates."
	MessageNoKeywords    = "No keywords could be extracted from the query."
	MessageNoRecords     = "No resumes matched the query."
	MessageSearchFailed  = "Resume search failed"
	MessageInternalError = "The query could not be processed because of an internal error."
)

// degradationKind is the metrics label of a recovered failure.
func degradationKind(err error) string {
	switch {
	case errors.Is(err, ErrExpansionDegraded):
		return "expansion"
	case errors.Is(err, ErrRerankDegraded):
		return "rerank"
	case errors.Is(err, ErrSynthesisFailed):
		return "synthesis"
	default:
		return "unknown"
	}
}
