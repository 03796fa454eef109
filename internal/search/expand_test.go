package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/vetbolaget/triage/internal/llm"
)

type mockProvider struct {
	response string
	err      error
	calls    int
}

func (m *mockProvider) Complete(ctx context.Context, prompt string, opts llm.CompletionOpts) (string, error) {
	m.calls++
	return m.response, m.err
}

func (m *mockProvider) Name() string { return "mock" }

func TestExpandQuery_ParsesArray(t *testing.T) {
	ResetExpandCache()
	p := &mockProvider{response: `["direktreglering", "skadenummer", "Folksam ersättning"]`}

	res, err := ExpandQuery(context.Background(), p, "folksam-grejen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Expanded) != 4 {
		t.Fatalf("expected original + 3 expansions, got %v", res.Expanded)
	}
	if res.Expanded[0] != "folksam-grejen" {
		t.Errorf("original query must come first: %v", res.Expanded)
	}
}

func TestExpandQuery_MarkdownFences(t *testing.T) {
	ResetExpandCache()
	p := &mockProvider{response: "```json\n[\"komplettering\", \"journal\"]\n```"}

	res, err := ExpandQuery(context.Background(), p, "saknas papper")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Expanded) != 3 {
		t.Errorf("expected 3 terms, got %v", res.Expanded)
	}
}

func TestExpandQuery_ProviderErrorFallsBack(t *testing.T) {
	ResetExpandCache()
	p := &mockProvider{err: fmt.Errorf("rate limited")}

	res, err := ExpandQuery(context.Background(), p, "kvitto bella")
	if err != nil {
		t.Fatalf("fallback must not surface the provider error: %v", err)
	}
	if len(res.Expanded) != 1 || res.Expanded[0] != "kvitto bella" {
		t.Errorf("expected original query only, got %v", res.Expanded)
	}
}

func TestExpandQuery_CachesResults(t *testing.T) {
	ResetExpandCache()
	p := &mockProvider{response: `["skadeanmälan"]`}
	ctx := context.Background()

	if _, err := ExpandQuery(ctx, p, "anmälan"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	res, err := ExpandQuery(ctx, p, "anmälan")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !res.Cached {
		t.Error("second call should hit the cache")
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
}

func TestParseExpandResponse_ObjectWrapper(t *testing.T) {
	queries, err := parseExpandResponse(`{"queries": ["utbetalningsbesked"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 1 || queries[0] != "utbetalningsbesked" {
		t.Errorf("got %v", queries)
	}
}

func TestParseExpandResponse_Garbage(t *testing.T) {
	if _, err := parseExpandResponse("inte json alls"); err == nil {
		t.Fatal("expected parse error")
	}
}
