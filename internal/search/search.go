// Package search finds stored emails by free-text query.
//
// Two legs run per query: keyword matching against the email columns in
// SQLite, and semantic matching against the embedding index when one is
// available. The legs are merged with reciprocal rank fusion so an email
// found by both ranks above one found by either alone. An LLM can
// optionally expand vague queries into precise Swedish search terms;
// expansion failures degrade to the original query.
package search

import (
	"context"
	"strings"
	"unicode"

	"github.com/vetbolaget/triage/internal/llm"
	"github.com/vetbolaget/triage/internal/similar"
	"github.com/vetbolaget/triage/internal/store"
)

const (
	defaultLimit  = 20
	snippetRunes  = 160
	semanticDepth = 50
)

// Result is one ranked email hit.
type Result struct {
	EmailID     int64   `json:"email_id"`
	Subject     string  `json:"subject"`
	FromAddress string  `json:"from_address"`
	Category    string  `json:"category,omitempty"`
	Reference   string  `json:"reference,omitempty"`
	Snippet     string  `json:"snippet,omitempty"`
	Score       float64 `json:"score"`
	MatchType   string  `json:"match_type"` // keyword, semantic or rrf
}

// Store is the storage surface the searcher needs.
type Store interface {
	SearchEmails(ctx context.Context, term string, limit int) ([]*store.Email, error)
	GetEmail(ctx context.Context, id int64) (*store.Email, error)
}

// Searcher runs hybrid queries over the email table.
type Searcher struct {
	store    Store
	index    *similar.Index
	provider llm.Provider
	cfg      RRFConfig
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithIndex enables the semantic leg.
func WithIndex(ix *similar.Index) Option {
	return func(s *Searcher) { s.index = ix }
}

// WithProvider enables LLM query expansion.
func WithProvider(p llm.Provider) Option {
	return func(s *Searcher) { s.provider = p }
}

// WithRRFConfig overrides the fusion parameters.
func WithRRFConfig(cfg RRFConfig) Option {
	return func(s *Searcher) { s.cfg = cfg }
}

// New creates a Searcher. Without options only the keyword leg runs.
func New(st Store, opts ...Option) *Searcher {
	s := &Searcher{store: st, cfg: DefaultRRFConfig()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns up to limit emails ranked for the query.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	terms := []string{query}
	if s.provider != nil {
		if exp, err := ExpandQuery(ctx, s.provider, query); err == nil {
			terms = exp.Expanded
		}
	}

	keyword, err := s.keywordLeg(ctx, terms, limit)
	if err != nil {
		return nil, err
	}

	var semantic []Result
	if s.index != nil && s.index.Len() > 0 {
		semantic, err = s.semanticLeg(ctx, query)
		if err != nil {
			// The keyword leg alone is still a useful answer when the
			// embedding endpoint is down.
			semantic = nil
		}
	}

	if len(semantic) == 0 {
		if len(keyword) > limit {
			keyword = keyword[:limit]
		}
		return keyword, nil
	}
	return FuseRRF(keyword, semantic, limit, s.cfg), nil
}

// keywordLeg runs every expanded term and keeps each email's best rank.
func (s *Searcher) keywordLeg(ctx context.Context, terms []string, limit int) ([]Result, error) {
	seen := map[int64]bool{}
	var out []Result
	for _, term := range terms {
		emails, err := s.store.SearchEmails(ctx, term, limit)
		if err != nil {
			return nil, err
		}
		for _, e := range emails {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			out = append(out, resultOf(e, "keyword"))
		}
	}
	return out, nil
}

func (s *Searcher) semanticLeg(ctx context.Context, query string) ([]Result, error) {
	hits, err := s.index.Nearest(ctx, query, semanticDepth)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		e, err := s.store.GetEmail(ctx, h.ID)
		if err != nil {
			continue
		}
		r := resultOf(e, "semantic")
		r.Score = h.Similarity
		out = append(out, r)
	}
	return out, nil
}

func resultOf(e *store.Email, matchType string) Result {
	return Result{
		EmailID:     e.ID,
		Subject:     e.Subject,
		FromAddress: e.FromAddress,
		Category:    e.Category,
		Reference:   e.Reference,
		Snippet:     snippet(e.TextPlain),
		MatchType:   matchType,
	}
}

// snippet returns the leading text of a body, collapsed to one line.
func snippet(body string) string {
	var sb strings.Builder
	prevSpace := true
	count := 0
	for _, r := range body {
		if unicode.IsSpace(r) {
			if !prevSpace {
				sb.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		sb.WriteRune(r)
		count++
		if count >= snippetRunes {
			sb.WriteString("…")
			break
		}
	}
	return strings.TrimSpace(sb.String())
}
