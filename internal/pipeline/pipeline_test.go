package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/vetbolaget/triage/internal/classify"
	"github.com/vetbolaget/triage/internal/connect"
	"github.com/vetbolaget/triage/internal/rules"
	"github.com/vetbolaget/triage/internal/store"
)

var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, store.Store) {
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

	return New(catalog, classify.New(catalog), st), st
}

func TestProcess_EndToEnd(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	errandID, err := st.AddErrand(ctx, &store.Errand{
		Reference: "DR-12345",
		CreatedAt: base.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("adding errand: %v", err)
	}

	id, err := st.AddEmail(ctx, &store.Email{
		MessageID:   "<e2e@t>",
		FromAddress: "skador@folksam.se",
		Subject:     "Ersättningsbesked DR-12345",
		TextPlain:   "Skadenummer: FF1234567S\nBelopp att utbetala 1 234,00",
		CreatedAt:   base,
	})
	if err != nil {
		t.Fatalf("adding email: %v", err)
	}

	email, _ := st.GetEmail(ctx, id)
	v, err := e.Process(ctx, email)
	if err != nil {
		t.Fatalf("processing: %v", err)
	}

	if v.Category != rules.CategorySettlementApproved {
		t.Errorf("expected Settlement_Approved, got %s", v.Category)
	}
	if v.SenderRole != rules.RoleInsuranceCompany {
		t.Errorf("folksam.se sender should be the insurer, got %s", v.SenderRole)
	}
	if !v.Connection.Connected || v.Connection.ErrandID != errandID {
		t.Errorf("expected connection to errand %d, got %+v", errandID, v.Connection)
	}
	if v.Connection.MatchedOn != connect.MatchReference {
		t.Errorf("expected reference match, got %s", v.Connection.MatchedOn)
	}

	stored, _ := st.GetEmail(ctx, id)
	if stored.Category != string(rules.CategorySettlementApproved) {
		t.Errorf("verdict not persisted: %+v", stored)
	}
	if stored.DamageNumber != "FF1234567S" {
		t.Errorf("damage number not persisted, got %q", stored.DamageNumber)
	}
	if stored.SettlementOre == nil || *stored.SettlementOre != 123400 {
		t.Errorf("settlement amount not persisted: %v", stored.SettlementOre)
	}
	if stored.CatalogHash == "" {
		t.Error("catalog hash not stamped")
	}
	if stored.ErrandID == nil || *stored.ErrandID != errandID {
		t.Errorf("errand id not persisted: %v", stored.ErrandID)
	}
}

func TestProcessBatch_Idempotent(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	for i, body := range []string{
		"Vi har mottagit en direktreglering.",
		"Hur går det med ärendet?",
	} {
		_, err := st.AddEmail(ctx, &store.Email{
			MessageID:   "<batch" + string(rune('a'+i)) + "@t>",
			FromAddress: "vet@klinik.se",
			TextPlain:   body,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("adding email: %v", err)
		}
	}

	processed, failed, err := e.ProcessBatch(ctx, 10)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if processed != 2 || failed != 0 {
		t.Fatalf("expected 2 processed, got %d/%d", processed, failed)
	}

	processed, _, err = e.ProcessBatch(ctx, 10)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if processed != 0 {
		t.Errorf("second run must be a no-op, processed %d", processed)
	}
}

func TestProcess_ClinicSenderRoleAndCompType(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	id, _ := st.AddEmail(ctx, &store.Email{
		MessageID:   "<cl@t>",
		FromAddress: "vet@klinik.se",
		Subject:     "Komplettering",
		TextPlain:   "Vi har mottagit en direktreglering och behöver journalen.",
		CreatedAt:   base,
	})
	email, _ := st.GetEmail(ctx, id)
	v, err := e.Process(ctx, email)
	if err != nil {
		t.Fatalf("processing: %v", err)
	}

	if v.SenderRole != rules.RoleClinic {
		t.Errorf("non-insurer domain should be a clinic, got %s", v.SenderRole)
	}
	if v.CompType != rules.CompTypeDirektreglering {
		t.Errorf("expected direktreglering comp type, got %q", v.CompType)
	}
	if len(v.Actions) == 0 {
		t.Error("expected action suggestions for Complement")
	}
}

func TestProcess_CorrectedCategorySteersVerdict(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	id, _ := st.AddEmail(ctx, &store.Email{
		MessageID:   "<corr@t>",
		FromAddress: "vet@klinik.se",
		TextPlain:   "Helt omärkbar text utan regelträff.",
		CreatedAt:   base,
	})
	email, _ := st.GetEmail(ctx, id)
	email.CorrectedCategory = string(rules.CategorySettlementRequest)

	v, err := e.Process(ctx, email)
	if err != nil {
		t.Fatalf("processing: %v", err)
	}
	if v.Category != rules.CategorySettlementRequest {
		t.Errorf("correction must steer the category, got %s", v.Category)
	}
	if v.Source != classify.SourceCorrected {
		t.Errorf("expected corrected source, got %s", v.Source)
	}
}

func TestProcess_CorrectionKeepsMachineCategoryOnRecord(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	id, _ := st.AddEmail(ctx, &store.Email{
		MessageID:   "<audit@t>",
		FromAddress: "skador@folksam.se",
		TextPlain:   "Belopp att utbetala 1 234,00",
		CreatedAt:   base,
	})
	email, _ := st.GetEmail(ctx, id)
	email.CorrectedCategory = string(rules.CategorySpam)

	v, err := e.Process(ctx, email)
	if err != nil {
		t.Fatalf("processing: %v", err)
	}
	if v.Category != rules.CategorySpam {
		t.Errorf("correction must steer the verdict, got %s", v.Category)
	}
	if v.MachineCategory != rules.CategorySettlementApproved {
		t.Errorf("expected machine verdict Settlement_Approved, got %s", v.MachineCategory)
	}

	stored, _ := st.GetEmail(ctx, id)
	if stored.Category != string(rules.CategorySettlementApproved) {
		t.Errorf("category column must keep the machine verdict, got %q", stored.Category)
	}
	if stored.CorrectedCategory != string(rules.CategorySpam) {
		t.Errorf("correction not persisted, got %q", stored.CorrectedCategory)
	}
	if stored.CategorySource != string(classify.SourceCorrected) {
		t.Errorf("expected corrected source, got %q", stored.CategorySource)
	}
}

func TestProcess_ExistingConnectionKept(t *testing.T) {
	e, st := newEngine(t)
	ctx := context.Background()

	oldID, _ := st.AddErrand(ctx, &store.Errand{Reference: "DR-1", CreatedAt: base})
	newID, _ := st.AddErrand(ctx, &store.Errand{Reference: "DR-2", CreatedAt: base})

	id, _ := st.AddEmail(ctx, &store.Email{
		MessageID:   "<mono@t>",
		FromAddress: "vet@klinik.se",
		TextPlain:   "Angående DR-2",
		CreatedAt:   base,
	})
	email, _ := st.GetEmail(ctx, id)
	email.ErrandID = &oldID

	v, err := e.Process(ctx, email)
	if err != nil {
		t.Fatalf("processing: %v", err)
	}
	if v.Connection.ErrandID != oldID {
		t.Errorf("existing connection must be kept over a new match to %d, got %+v", newID, v.Connection)
	}
	if v.Connection.MatchedOn != connect.MatchExisting {
		t.Errorf("expected existing rule, got %s", v.Connection.MatchedOn)
	}
}
