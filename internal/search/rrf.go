package search

import (
	"math"
	"sort"
)

const defaultRRFK = 60

// RRFConfig holds the reciprocal rank fusion parameters.
type RRFConfig struct {
	K              int
	KeywordWeight  float64
	SemanticWeight float64
}

// DefaultRRFConfig weights both legs equally.
func DefaultRRFConfig() RRFConfig {
	return RRFConfig{K: defaultRRFK, KeywordWeight: 1.0, SemanticWeight: 1.0}
}

// FuseRRF merges the keyword and semantic ranked lists. An email absent
// from one list is scored as if ranked just past that list's end.
func FuseRRF(keyword, semantic []Result, limit int, cfg RRFConfig) []Result {
	cfg = normalizeRRFConfig(cfg)

	keywordPenalty := len(keyword) + 1
	semanticPenalty := len(semantic) + 1

	type entry struct {
		result       Result
		keywordRank  int
		semanticRank int
	}
	fused := make(map[int64]*entry)

	for i, r := range keyword {
		fused[r.EmailID] = &entry{result: r, keywordRank: i + 1, semanticRank: semanticPenalty}
	}
	for i, r := range semantic {
		if e, ok := fused[r.EmailID]; ok {
			e.semanticRank = i + 1
			if e.result.Snippet == "" {
				e.result.Snippet = r.Snippet
			}
		} else {
			fused[r.EmailID] = &entry{result: r, keywordRank: keywordPenalty, semanticRank: i + 1}
		}
	}

	merged := make([]Result, 0, len(fused))
	for _, e := range fused {
		score := cfg.KeywordWeight/float64(cfg.K+e.keywordRank) +
			cfg.SemanticWeight/float64(cfg.K+e.semanticRank)
		e.result.Score = score
		e.result.MatchType = "rrf"
		merged = append(merged, e.result)
	}

	sort.Slice(merged, func(i, j int) bool {
		delta := merged[i].Score - merged[j].Score
		if math.Abs(delta) <= 1e-12 {
			return merged[i].EmailID < merged[j].EmailID
		}
		return delta > 0
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func normalizeRRFConfig(cfg RRFConfig) RRFConfig {
	if cfg.K <= 0 {
		cfg.K = defaultRRFK
	}
	if cfg.KeywordWeight == 0 {
		cfg.KeywordWeight = 1.0
	}
	if cfg.SemanticWeight == 0 {
		cfg.SemanticWeight = 1.0
	}
	return cfg
}
