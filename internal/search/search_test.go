package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vetbolaget/triage/internal/rules"
	"github.com/vetbolaget/triage/internal/similar"
	"github.com/vetbolaget/triage/internal/store"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func seedStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.New(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	emails := []*store.Email{
		{MessageID: "a@x", FromAddress: "vet@klinik.se", Subject: "Komplettering DR-12345",
			TextPlain: "Journal för Bella bifogas.", CreatedAt: base},
		{MessageID: "b@x", FromAddress: "skador@folksam.se", Subject: "Utbetalningsbesked",
			TextPlain: "Belopp att utbetala 1 234,00", CreatedAt: base.Add(time.Hour)},
		{MessageID: "c@x", FromAddress: "info@sveland.se", Subject: "Nyhetsbrev",
			TextPlain: "Månadens erbjudanden", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range emails {
		if _, err := st.AddEmail(ctx, e); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	return st
}

func TestSearch_KeywordOnly(t *testing.T) {
	st := seedStore(t)
	s := New(st)

	results, err := s.Search(context.Background(), "Bella", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(results))
	}
	if results[0].Subject != "Komplettering DR-12345" || results[0].MatchType != "keyword" {
		t.Errorf("unexpected hit: %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("snippet missing")
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	st := seedStore(t)
	s := New(st)
	results, err := s.Search(context.Background(), "   ", 10)
	if err != nil || results != nil {
		t.Errorf("empty query: results=%v err=%v", results, err)
	}
}

func TestSearch_HybridFusesBothLegs(t *testing.T) {
	st := seedStore(t)
	ctx := context.Background()

	// Email 2 is the semantic neighbor of the query; email 1 the keyword hit.
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"ersättning utbetald": {1, 0},
		"payout-corpus":       {0.9, 0.1},
	}}
	index := similar.NewIndex(embedder)
	if err := index.Build(ctx, []similar.Example{
		{ID: 2, Text: "payout-corpus", Category: rules.CategorySettlementApproved},
	}); err != nil {
		t.Fatalf("building index: %v", err)
	}

	s := New(st, WithIndex(index))
	results, err := s.Search(ctx, "ersättning utbetald", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected hits")
	}
	found := false
	for _, r := range results {
		if r.EmailID == 2 && r.MatchType == "rrf" {
			found = true
		}
	}
	if !found {
		t.Errorf("semantic hit missing from fused results: %+v", results)
	}
}

func TestSearch_SemanticFailureDegradesToKeyword(t *testing.T) {
	st := seedStore(t)
	ctx := context.Background()

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"payout-corpus": {0.9, 0.1},
	}}
	index := similar.NewIndex(embedder)
	if err := index.Build(ctx, []similar.Example{
		{ID: 2, Text: "payout-corpus", Category: rules.CategorySettlementApproved},
	}); err != nil {
		t.Fatalf("building index: %v", err)
	}

	s := New(st, WithIndex(index))
	// Query has no vector, so the embed call fails; keyword leg still answers.
	results, err := s.Search(ctx, "Utbetalningsbesked", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].EmailID != 2 {
		t.Errorf("keyword fallback broken: %+v", results)
	}
}
