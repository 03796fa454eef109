// Package classify assigns exactly one business category to a normalized
// email.
//
// Category groups run in catalog order; within a group, patterns run in
// row order. The first group with any matching pattern wins and no later
// group is tried, so overlap between broad groups is resolved by order.
// When no pattern anywhere matches, a similarity-search collaborator
// gets a chance; if it is absent or unsure the category fails closed to
// Other.
package classify

import (
	"context"

	"github.com/vetbolaget/triage/internal/rules"
)

// Source records how a category was produced.
type Source string

const (
	SourceRules      Source = "rules"
	SourceSimilarity Source = "similarity"
	SourceDefault    Source = "default"
	SourceCorrected  Source = "corrected"
)

// DefaultMinConfidence is the similarity threshold below which the
// fallback's suggestion is ignored.
const DefaultMinConfidence = 0.65

// Fallback is the similarity-search collaborator consulted when no rule
// matches. Implementations return a best-guess label with a confidence.
type Fallback interface {
	Suggest(ctx context.Context, normalized string) (rules.Category, float64, error)
}

// Result is the outcome of classifying one email.
type Result struct {
	Category     rules.Category
	Source       Source
	GroupIndex   int     // index of the winning group, -1 unless SourceRules
	PatternIndex int     // index of the winning pattern within its group
	Confidence   float64 // only meaningful for SourceSimilarity
}

// Categorizer applies the catalog's category groups.
type Categorizer struct {
	catalog       *rules.Catalog
	fallback      Fallback
	minConfidence float64
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithFallback installs the similarity-search collaborator.
func WithFallback(f Fallback) Option {
	return func(c *Categorizer) { c.fallback = f }
}

// WithMinConfidence overrides the similarity acceptance threshold.
func WithMinConfidence(min float64) Option {
	return func(c *Categorizer) { c.minConfidence = min }
}

// New creates a Categorizer over a loaded catalog.
func New(catalog *rules.Catalog, opts ...Option) *Categorizer {
	c := &Categorizer{catalog: catalog, minConfidence: DefaultMinConfidence}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categorize resolves the category for one normalized working string.
// It never returns an error: no-match is an expected state, and a failing
// fallback collaborator degrades to Other.
func (c *Categorizer) Categorize(ctx context.Context, normalized string) Result {
	if normalized != "" {
		for gi := range c.catalog.Categories {
			group := &c.catalog.Categories[gi]
			for pi, re := range group.Patterns {
				if re.MatchString(normalized) {
					return Result{
						Category:     group.Category,
						Source:       SourceRules,
						GroupIndex:   gi,
						PatternIndex: pi,
					}
				}
			}
		}
	}

	if c.fallback != nil && normalized != "" {
		cat, conf, err := c.fallback.Suggest(ctx, normalized)
		if err == nil && cat.Valid() && conf >= c.minConfidence {
			return Result{
				Category:     cat,
				Source:       SourceSimilarity,
				GroupIndex:   -1,
				PatternIndex: -1,
				Confidence:   conf,
			}
		}
	}

	return Result{Category: rules.CategoryOther, Source: SourceDefault, GroupIndex: -1, PatternIndex: -1}
}

// Effective applies the corrected-category precedence rule: a human (or
// re-run) override steers all downstream routing, while the machine
// category is retained for audit.
func Effective(machine rules.Category, corrected rules.Category) (rules.Category, Source) {
	if corrected != "" && corrected.Valid() {
		return corrected, SourceCorrected
	}
	return machine, SourceRules
}

// ClinicCompType resolves the Complement sub-type. It applies only when
// the effective category is Complement or Complement_Reply; any other
// category yields none.
func (c *Categorizer) ClinicCompType(category rules.Category, normalized string) rules.CompType {
	if category != rules.CategoryComplement && category != rules.CategoryComplementReply {
		return rules.CompTypeNone
	}
	for _, rule := range c.catalog.CompTypes {
		if rule.Pattern.MatchString(normalized) {
			return rule.Type
		}
	}
	return rules.CompTypeNone
}

// Suggestions returns the static action suggestions for a category.
func Suggestions(category rules.Category) []rules.Action {
	return rules.ActionSuggestions[category]
}
