package ai

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInstrumentedComplete(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	var got Request
	inner := CompleterFunc(func(_ context.Context, req Request) (string, error) {
		got = req
		return "[\"go\"]", nil
	})

	c := NewInstrumented(inner, "gemini", "model-x", 0, zap.New(core))

	out, err := c.Complete(context.Background(), Request{Stage: "extract", Prompt: "find go developers"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[\"go\"]" {
		t.Fatalf("unexpected output: %q", out)
	}
	if got.Prompt != "find go developers" {
		t.Fatalf("request was not forwarded: %+v", got)
	}

	entries := observed.FilterMessage("llm response").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 response entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["ai_provider"] != "gemini" || ctx["stage"] != "extract" {
		t.Fatalf("unexpected log context: %v", ctx)
	}
}

func TestInstrumentedCompleteError(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	boom := errors.New("boom")
	c := NewInstrumented(CompleterFunc(func(context.Context, Request) (string, error) {
		return "", boom
	}), "azure", "gpt", 10, zap.New(core))

	if _, err := c.Complete(context.Background(), Request{Prompt: "q"}); !errors.Is(err, boom) {
		t.Fatalf("expected inner error, got %v", err)
	}

	if observed.FilterMessage("llm request failed").Len() != 1 {
		t.Fatalf("expected failure to be logged")
	}
}
