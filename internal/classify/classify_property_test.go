package classify

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vetbolaget/triage/internal/rules"
)

func TestProperty_CategorizeAlwaysYieldsValidCategory(t *testing.T) {
	catalog, err := rules.NewCatalog()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	c := New(catalog)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	textGen := gen.SliceOfN(80, gen.AlphaChar()).Map(func(chars []rune) string {
		return "[SUBJECT] " + string(chars[:20]) + " [BODY] " + string(chars[20:])
	})

	properties.Property("category_always_valid", prop.ForAll(
		func(text string) bool {
			res := c.Categorize(ctx, text)
			return res.Category.Valid()
		},
		textGen,
	))

	properties.Property("source_is_rules_or_default_without_fallback", prop.ForAll(
		func(text string) bool {
			res := c.Categorize(ctx, text)
			switch res.Source {
			case SourceRules:
				return res.GroupIndex >= 0 && res.GroupIndex < len(catalog.Categories) &&
					res.PatternIndex >= 0
			case SourceDefault:
				return res.Category == rules.CategoryOther && res.GroupIndex == -1
			default:
				return false
			}
		},
		textGen,
	))

	properties.Property("categorize_is_deterministic", prop.ForAll(
		func(text string) bool {
			return c.Categorize(ctx, text) == c.Categorize(ctx, text)
		},
		textGen,
	))

	properties.TestingRun(t)
}

func TestProperty_EffectiveCorrectionPrecedence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	categoryGen := gen.IntRange(0, len(rules.CategoryOrder)-1).Map(func(i int) rules.Category {
		return rules.CategoryOrder[i]
	})

	properties.Property("valid_correction_always_wins", prop.ForAll(
		func(machine, corrected rules.Category) bool {
			got, source := Effective(machine, corrected)
			return got == corrected && source == SourceCorrected
		},
		categoryGen,
		categoryGen,
	))

	properties.Property("empty_correction_keeps_machine_category", prop.ForAll(
		func(machine rules.Category) bool {
			got, source := Effective(machine, "")
			return got == machine && source == SourceRules
		},
		categoryGen,
	))

	properties.TestingRun(t)
}
