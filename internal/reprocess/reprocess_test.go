package reprocess

import (
	"context"
	"testing"
	"time"

	"github.com/vetbolaget/triage/internal/classify"
	"github.com/vetbolaget/triage/internal/pipeline"
	"github.com/vetbolaget/triage/internal/rules"
	"github.com/vetbolaget/triage/internal/store"
)

func setup(t *testing.T) (*Runner, store.Store, *rules.Catalog) {
	t.Helper()
	catalog, err := rules.NewCatalog()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	st, err := store.New(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine := pipeline.New(catalog, classify.New(catalog), st)
	return NewRunner(engine, st, catalog), st, catalog
}

// seedStale inserts a processed email carrying a verdict from an older
// catalog revision.
func seedStale(t *testing.T, st store.Store, messageID, body, category, corrected string) int64 {
	t.Helper()
	ctx := context.Background()
	email := &store.Email{
		MessageID:   messageID,
		FromAddress: "skador@folksam.se",
		Subject:     "Beslut",
		TextPlain:   body,
		CreatedAt:   time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	id, err := st.AddEmail(ctx, email)
	if err != nil {
		t.Fatalf("seeding email: %v", err)
	}
	email.Category = category
	email.CorrectedCategory = corrected
	email.CategorySource = "rules"
	email.CatalogHash = "0000000000000000"
	if err := st.UpdateEmailTriage(ctx, email); err != nil {
		t.Fatalf("seeding verdict: %v", err)
	}
	return id
}

func TestRun_DryRunReportsWithoutWriting(t *testing.T) {
	r, st, _ := setup(t)
	ctx := context.Background()
	id := seedStale(t, st, "stale@x", "Belopp att utbetala 1 234,00", "Question", "")

	report, err := r.Run(ctx, true, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Scanned != 1 || report.Changed != 1 || report.Applied != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	act := report.Actions[0]
	if act.FromCategory != "Question" || act.ToCategory != "Settlement_Approved" || act.Applied {
		t.Errorf("unexpected action: %+v", act)
	}

	got, err := st.GetEmail(ctx, id)
	if err != nil {
		t.Fatalf("loading email: %v", err)
	}
	if got.Category != "Question" || got.CatalogHash != "0000000000000000" {
		t.Errorf("dry run wrote to the store: %+v", got)
	}
}

func TestRun_ApplyUpdatesVerdictAndHash(t *testing.T) {
	r, st, catalog := setup(t)
	ctx := context.Background()
	id := seedStale(t, st, "stale@x", "Belopp att utbetala 1 234,00", "Question", "")

	report, err := r.Run(ctx, false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Applied != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	got, err := st.GetEmail(ctx, id)
	if err != nil {
		t.Fatalf("loading email: %v", err)
	}
	if got.Category != "Settlement_Approved" {
		t.Errorf("category not updated: %q", got.Category)
	}
	if got.CatalogHash != catalog.Hash() {
		t.Errorf("catalog hash not refreshed: %q", got.CatalogHash)
	}

	// A second run finds nothing stale.
	report, err = r.Run(ctx, false, 0)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Scanned != 0 {
		t.Errorf("reprocessed email picked up again: %+v", report)
	}
}

func TestRun_CorrectionSurvivesReprocess(t *testing.T) {
	r, st, _ := setup(t)
	ctx := context.Background()
	id := seedStale(t, st, "corr@x", "Belopp att utbetala 500,00", "Question", "Spam")

	report, err := r.Run(ctx, false, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Applied != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	got, err := st.GetEmail(ctx, id)
	if err != nil {
		t.Fatalf("loading email: %v", err)
	}
	if got.Category != "Settlement_Approved" {
		t.Errorf("machine verdict lost under correction: %q", got.Category)
	}
	if got.CategorySource != "corrected" {
		t.Errorf("expected corrected source, got %q", got.CategorySource)
	}
	if got.CorrectedCategory != "Spam" {
		t.Errorf("corrected_category cleared: %q", got.CorrectedCategory)
	}
}

func TestRun_FreshEmailsAreSkipped(t *testing.T) {
	r, st, catalog := setup(t)
	ctx := context.Background()

	email := &store.Email{
		MessageID:   "fresh@x",
		FromAddress: "vet@klinik.se",
		Subject:     "Fråga",
		TextPlain:   "Har ni tagit emot journalen?",
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := st.AddEmail(ctx, email); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	email.Category = "Question"
	email.CategorySource = "rules"
	email.CatalogHash = catalog.Hash()
	if err := st.UpdateEmailTriage(ctx, email); err != nil {
		t.Fatalf("seeding verdict: %v", err)
	}

	report, err := r.Run(ctx, true, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Scanned != 0 {
		t.Errorf("fresh email treated as stale: %+v", report)
	}
}
