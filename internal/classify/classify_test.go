package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/vetbolaget/triage/internal/rules"
)

func newCategorizer(t *testing.T, opts ...Option) *Categorizer {
	t.Helper()
	catalog, err := rules.NewCatalog()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	return New(catalog, opts...)
}

// mockFallback implements Fallback for testing.
type mockFallback struct {
	category rules.Category
	conf     float64
	err      error
	calls    int
}

func (m *mockFallback) Suggest(_ context.Context, _ string) (rules.Category, float64, error) {
	m.calls++
	return m.category, m.conf, m.err
}

func TestCategorize_SettlementApproved(t *testing.T) {
	c := newCategorizer(t)
	r := c.Categorize(context.Background(), "[SUBJECT] Ersättningsbesked [BODY] Belopp att utbetala 1 234,00")

	if r.Category != rules.CategorySettlementApproved {
		t.Fatalf("expected Settlement_Approved, got %s", r.Category)
	}
	if r.Source != SourceRules {
		t.Errorf("expected rules source, got %s", r.Source)
	}
}

func TestCategorize_ComplementDirektreglering(t *testing.T) {
	c := newCategorizer(t)
	text := "[SUBJECT] Komplettering [BODY] Vi har mottagit en direktreglering och behöver journalen."
	r := c.Categorize(context.Background(), text)

	if r.Category != rules.CategoryComplement {
		t.Fatalf("expected Complement, got %s", r.Category)
	}
	if ct := c.ClinicCompType(r.Category, text); ct != rules.CompTypeDirektreglering {
		t.Errorf("expected direktreglering comp type, got %q", ct)
	}
}

func TestCategorize_EarlierGroupWins(t *testing.T) {
	c := newCategorizer(t)
	// Contains a question mark (Question, late) and a settlement phrase
	// (Settlement_Approved, earlier). The earlier group must win.
	r := c.Categorize(context.Background(), "[SUBJECT] Besked [BODY] Belopp att utbetala 500,00. Har ni frågor?")

	if r.Category != rules.CategorySettlementApproved {
		t.Errorf("earlier group must win, got %s", r.Category)
	}
}

func TestCategorize_QuestionCatchesBareQuestion(t *testing.T) {
	c := newCategorizer(t)
	r := c.Categorize(context.Background(), "[SUBJECT] Undran [BODY] Hur länge gäller försäkringen?")

	if r.Category != rules.CategoryQuestion {
		t.Errorf("expected Question, got %s", r.Category)
	}
}

func TestCategorize_NoMatchDefaultsToOther(t *testing.T) {
	c := newCategorizer(t)
	r := c.Categorize(context.Background(), "[SUBJECT] Paj [BODY] Recept på äppelpaj")

	if r.Category != rules.CategoryOther {
		t.Errorf("expected Other, got %s", r.Category)
	}
	if r.Source != SourceDefault {
		t.Errorf("expected default source, got %s", r.Source)
	}
}

func TestCategorize_FallbackAccepted(t *testing.T) {
	fb := &mockFallback{category: rules.CategoryMessage, conf: 0.9}
	c := newCategorizer(t, WithFallback(fb))

	r := c.Categorize(context.Background(), "[SUBJECT] Paj [BODY] Recept på äppelpaj")
	if r.Category != rules.CategoryMessage {
		t.Errorf("expected fallback category, got %s", r.Category)
	}
	if r.Source != SourceSimilarity {
		t.Errorf("expected similarity source, got %s", r.Source)
	}
	if r.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", r.Confidence)
	}
}

func TestCategorize_FallbackBelowThreshold(t *testing.T) {
	fb := &mockFallback{category: rules.CategoryMessage, conf: 0.2}
	c := newCategorizer(t, WithFallback(fb))

	r := c.Categorize(context.Background(), "[SUBJECT] Paj [BODY] Recept på äppelpaj")
	if r.Category != rules.CategoryOther {
		t.Errorf("low-confidence suggestion must fail closed to Other, got %s", r.Category)
	}
}

func TestCategorize_FallbackErrorDegrades(t *testing.T) {
	fb := &mockFallback{err: fmt.Errorf("endpoint down")}
	c := newCategorizer(t, WithFallback(fb))

	r := c.Categorize(context.Background(), "[SUBJECT] Paj [BODY] Recept på äppelpaj")
	if r.Category != rules.CategoryOther {
		t.Errorf("fallback failure must degrade to Other, got %s", r.Category)
	}
}

func TestCategorize_FallbackNotConsultedWhenRuleMatches(t *testing.T) {
	fb := &mockFallback{category: rules.CategorySpam, conf: 0.99}
	c := newCategorizer(t, WithFallback(fb))

	c.Categorize(context.Background(), "[SUBJECT] Autosvar [BODY] Jag är på semester.")
	if fb.calls != 0 {
		t.Errorf("fallback must not run when a rule matched, calls=%d", fb.calls)
	}
}

func TestEffective_CorrectedWins(t *testing.T) {
	cat, src := Effective(rules.CategoryOther, rules.CategorySettlementDenied)
	if cat != rules.CategorySettlementDenied || src != SourceCorrected {
		t.Errorf("corrected category must win, got %s/%s", cat, src)
	}

	cat, src = Effective(rules.CategoryQuestion, "")
	if cat != rules.CategoryQuestion || src != SourceRules {
		t.Errorf("empty correction keeps machine category, got %s/%s", cat, src)
	}
}

func TestClinicCompType_OnlyForComplementCategories(t *testing.T) {
	c := newCategorizer(t)
	text := "[SUBJECT] S [BODY] Vi har mottagit en direktreglering."

	if ct := c.ClinicCompType(rules.CategoryQuestion, text); ct != rules.CompTypeNone {
		t.Errorf("non-complement category must not get a comp type, got %q", ct)
	}
	if ct := c.ClinicCompType(rules.CategoryComplementReply, text); ct != rules.CompTypeDirektreglering {
		t.Errorf("Complement_Reply should resolve comp type, got %q", ct)
	}
}

func TestCategorize_EveryCategoryReachable(t *testing.T) {
	samples := map[rules.Category]string{
		rules.CategoryAutoReply:          "[SUBJECT] Autosvar [BODY] Jag är tillbaka måndag.",
		rules.CategoryComplement:         "[SUBJECT] S [BODY] Vi har mottagit en direktreglering och behöver komplettering.",
		rules.CategorySettlementApproved: "[SUBJECT] S [BODY] Belopp att utbetala 100,00",
		rules.CategoryQuestion:           "[SUBJECT] S [BODY] Vad gäller?",
	}
	c := newCategorizer(t)
	for want, text := range samples {
		r := c.Categorize(context.Background(), text)
		if r.Category != want {
			t.Errorf("%q: expected %s, got %s", text, want, r.Category)
		}
	}
}
