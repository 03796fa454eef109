package search

import "testing"

func TestFuseRRF_BothLegsOutrankOne(t *testing.T) {
	keyword := []Result{
		{EmailID: 1, Subject: "Komplettering DR-1"},
		{EmailID: 2, Subject: "Kvitto"},
	}
	semantic := []Result{
		{EmailID: 3, Subject: "Utbetalning"},
		{EmailID: 1, Subject: "Komplettering DR-1"},
	}

	fused := FuseRRF(keyword, semantic, 0, DefaultRRFConfig())
	if len(fused) != 3 {
		t.Fatalf("expected 3 results, got %d", len(fused))
	}
	if fused[0].EmailID != 1 {
		t.Errorf("email in both legs must rank first, got %d", fused[0].EmailID)
	}
	if fused[0].MatchType != "rrf" {
		t.Errorf("match type: %q", fused[0].MatchType)
	}
	if fused[0].Score <= fused[1].Score {
		t.Errorf("scores not descending: %v vs %v", fused[0].Score, fused[1].Score)
	}
}

func TestFuseRRF_TieBreaksByEmailID(t *testing.T) {
	keyword := []Result{{EmailID: 9}, {EmailID: 4}}
	fused := FuseRRF(keyword, nil, 0, DefaultRRFConfig())
	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
	// Ranks 1 and 2 differ, so order follows rank, not id.
	if fused[0].EmailID != 9 {
		t.Errorf("rank order lost: %v", fused)
	}

	// Same rank in opposite legs scores identically; lower id wins.
	fused = FuseRRF([]Result{{EmailID: 7}}, []Result{{EmailID: 3}}, 0, DefaultRRFConfig())
	if fused[0].EmailID != 3 {
		t.Errorf("expected id tie-break, got %v", fused)
	}
}

func TestFuseRRF_Limit(t *testing.T) {
	keyword := []Result{{EmailID: 1}, {EmailID: 2}, {EmailID: 3}}
	fused := FuseRRF(keyword, nil, 2, DefaultRRFConfig())
	if len(fused) != 2 {
		t.Errorf("limit not applied: %d results", len(fused))
	}
}

func TestFuseRRF_SnippetFilledFromSemanticLeg(t *testing.T) {
	keyword := []Result{{EmailID: 1}}
	semantic := []Result{{EmailID: 1, Snippet: "Direktreglering för Bella"}}
	fused := FuseRRF(keyword, semantic, 0, DefaultRRFConfig())
	if fused[0].Snippet != "Direktreglering för Bella" {
		t.Errorf("snippet: %q", fused[0].Snippet)
	}
}

func TestNormalizeRRFConfig_Defaults(t *testing.T) {
	cfg := normalizeRRFConfig(RRFConfig{})
	if cfg.K != defaultRRFK || cfg.KeywordWeight != 1.0 || cfg.SemanticWeight != 1.0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
