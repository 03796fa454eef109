// Package reprocess re-runs triage over emails whose verdict predates
// the current rule catalog. Every run produces a report; a dry run
// computes the would-be verdicts without writing anything, so a catalog
// change can be reviewed before it is applied.
//
// Admin corrections survive reprocessing: the corrected category keeps
// precedence over whatever the new rules would say.
package reprocess

import (
	"context"
	"fmt"

	"github.com/vetbolaget/triage/internal/pipeline"
	"github.com/vetbolaget/triage/internal/rules"
	"github.com/vetbolaget/triage/internal/store"
)

// Action records the outcome for one stale email.
type Action struct {
	EmailID      int64  `json:"email_id"`
	FromCategory string `json:"from_category"`
	ToCategory   string `json:"to_category"`
	Reason       string `json:"reason"`
	Applied      bool   `json:"applied"`
}

// Report summarizes one reprocess run.
type Report struct {
	DryRun      bool     `json:"dry_run"`
	CatalogHash string   `json:"catalog_hash"`
	Scanned     int      `json:"scanned"`
	Changed     int      `json:"changed"`
	Applied     int      `json:"applied"`
	Failed      int      `json:"failed"`
	Actions     []Action `json:"actions"`
}

// Runner re-evaluates stale emails against the current catalog.
type Runner struct {
	engine *pipeline.Engine
	st     store.Store
	hash   string
}

// NewRunner creates a Runner for the given catalog revision.
func NewRunner(engine *pipeline.Engine, st store.Store, catalog *rules.Catalog) *Runner {
	return &Runner{engine: engine, st: st, hash: catalog.Hash()}
}

// Run scans up to limit stale emails. With dryRun set, verdicts are
// computed but nothing is persisted. One email's failure is recorded
// and the run continues.
func (r *Runner) Run(ctx context.Context, dryRun bool, limit int) (*Report, error) {
	report := &Report{DryRun: dryRun, CatalogHash: r.hash, Actions: []Action{}}

	emails, err := r.st.StaleEmails(ctx, r.hash, limit)
	if err != nil {
		return nil, fmt.Errorf("loading stale emails: %w", err)
	}

	for _, email := range emails {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Scanned++

		verdict, err := r.engine.Evaluate(ctx, email)
		if err != nil {
			report.Failed++
			report.Actions = append(report.Actions, Action{
				EmailID: email.ID,
				Reason:  "evaluation failed: " + err.Error(),
			})
			continue
		}

		act := Action{
			EmailID:      email.ID,
			FromCategory: email.Category,
			ToCategory:   string(verdict.MachineCategory),
			Reason:       reason(email, verdict),
		}
		if act.FromCategory != act.ToCategory {
			report.Changed++
		}

		if !dryRun {
			if _, err := r.engine.Process(ctx, email); err != nil {
				report.Failed++
				act.Reason += "; apply_error: " + err.Error()
			} else {
				act.Applied = true
				report.Applied++
			}
		}
		report.Actions = append(report.Actions, act)
	}
	return report, nil
}

func reason(email *store.Email, v *pipeline.Verdict) string {
	if email.CorrectedCategory != "" {
		return fmt.Sprintf("correction %q retained, catalog hash refreshed", email.CorrectedCategory)
	}
	if email.Category == string(v.MachineCategory) {
		return "verdict unchanged under current rules"
	}
	return fmt.Sprintf("current rules reclassify %q as %q", email.Category, v.MachineCategory)
}
