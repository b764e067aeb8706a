package ai

import "context"

// Request is a single text completion request.
type Request struct {
	// Stage names the pipeline step issuing the call. Used for logs and metrics only.
	Stage  string
	System string
	Prompt string
}

// Completer turns a prompt into free text. Implementations may fail or return
// text that does not follow the format the prompt asked for.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts an ordinary function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
