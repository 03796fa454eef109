// Package pipeline drives one email through the full triage flow:
// normalize, extract, categorize, connect, persist. A batch run is
// idempotent; already processed emails are never picked up again unless
// their verdict is reset first.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vetbolaget/triage/internal/classify"
	"github.com/vetbolaget/triage/internal/connect"
	"github.com/vetbolaget/triage/internal/extract"
	"github.com/vetbolaget/triage/internal/normalize"
	"github.com/vetbolaget/triage/internal/rules"
	"github.com/vetbolaget/triage/internal/store"
)

// DefaultCandidateWindow bounds how far from the email's timestamp the
// connector looks for errands.
const DefaultCandidateWindow = 90 * 24 * time.Hour

// Verdict is the full pipeline outcome for one email. Category is the
// effective category that steers routing and actions; MachineCategory
// is what the rules decided before any correction, and is what the
// category column stores so the machine verdict stays auditable.
type Verdict struct {
	EmailID         int64
	Category        rules.Category
	MachineCategory rules.Category
	Source          classify.Source
	CompType        rules.CompType
	SenderRole      rules.SenderRole
	Fields          extract.Fields
	Connection      connect.Decision
	Actions         []rules.Action
}

// Engine wires the stages over one catalog and one store.
type Engine struct {
	catalog     *rules.Catalog
	normalizer  *normalize.Normalizer
	extractor   *extract.Extractor
	categorizer *classify.Categorizer
	connector   *connect.Connector
	store       store.Store
	log         *zap.Logger
	window      time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCandidateWindow overrides the errand candidate window.
func WithCandidateWindow(w time.Duration) EngineOption {
	return func(e *Engine) { e.window = w }
}

// WithLogger installs a logger. Default is zap.NewNop.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine.
func New(catalog *rules.Catalog, categorizer *classify.Categorizer, st store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:     catalog,
		normalizer:  normalize.New(catalog),
		extractor:   extract.New(catalog),
		categorizer: categorizer,
		connector:   connect.New(),
		store:       st,
		log:         zap.NewNop(),
		window:      DefaultCandidateWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the pipeline stages for one email without persisting
// anything. Collaborator failures inside categorization degrade to
// Other; only storage errors while loading candidates abort.
func (e *Engine) Evaluate(ctx context.Context, email *store.Email) (*Verdict, error) {
	normalized := e.normalizer.Normalize(email.FromAddress, email.Subject, email.TextPlain, email.TextHTML)
	fields := e.extractor.Extract(normalized, email.AttachmentText)

	result := e.categorizer.Categorize(ctx, normalized)
	category, source := result.Category, result.Source
	if email.CorrectedCategory != "" {
		category, source = classify.Effective(result.Category, rules.Category(email.CorrectedCategory))
	}

	compType := e.categorizer.ClinicCompType(category, normalized)
	role := e.senderRole(email.FromAddress)

	candidates, err := e.candidates(ctx, email.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("loading candidate errands: %w", err)
	}
	meta := connect.EmailMeta{ID: email.ID, CreatedAt: email.CreatedAt}
	if email.ErrandID != nil {
		meta.ErrandID = *email.ErrandID
	}
	decision := e.connector.Connect(meta, fields, candidates)

	return &Verdict{
		EmailID:         email.ID,
		Category:        category,
		MachineCategory: result.Category,
		Source:          source,
		CompType:        compType,
		SenderRole:      role,
		Fields:          fields,
		Connection:      decision,
		Actions:         classify.Suggestions(category),
	}, nil
}

// Process runs the pipeline for one email and persists the verdict.
func (e *Engine) Process(ctx context.Context, email *store.Email) (*Verdict, error) {
	v, err := e.Evaluate(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := e.persist(ctx, email, v); err != nil {
		return nil, err
	}

	e.log.Info("email triaged",
		zap.Int64("email_id", email.ID),
		zap.String("category", string(v.Category)),
		zap.String("source", string(v.Source)),
		zap.String("matched_on", string(v.Connection.MatchedOn)),
		zap.Int64("errand_id", v.Connection.ErrandID))
	return v, nil
}

// ProcessBatch triages all unprocessed emails, oldest first. One email's
// failure is logged and skipped; the batch continues.
func (e *Engine) ProcessBatch(ctx context.Context, limit int) (processed, failed int, err error) {
	emails, err := e.store.UnprocessedEmails(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("loading unprocessed emails: %w", err)
	}

	for _, email := range emails {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		if _, perr := e.Process(ctx, email); perr != nil {
			failed++
			e.log.Warn("email triage failed", zap.Int64("email_id", email.ID), zap.Error(perr))
			continue
		}
		processed++
	}
	return processed, failed, nil
}

// senderRole resolves who sent the email from its address. Insurer
// domains come from the catalog registry; everything else is treated as
// a clinic, the common case for this inbox.
func (e *Engine) senderRole(from string) rules.SenderRole {
	addr := strings.ToLower(strings.TrimSpace(from))
	if addr == "" {
		return rules.RoleUnknown
	}
	if _, ok := e.catalog.InsurerByAddress(addr); ok {
		return rules.RoleInsuranceCompany
	}
	return rules.RoleClinic
}

func (e *Engine) candidates(ctx context.Context, around time.Time) ([]connect.Errand, error) {
	rows, err := e.store.CandidateErrands(ctx, around, e.window)
	if err != nil {
		return nil, err
	}
	out := make([]connect.Errand, len(rows))
	for i, r := range rows {
		out[i] = connect.Errand{
			ID:              r.ID,
			Reference:       r.Reference,
			InsuranceNumber: r.InsuranceNumber,
			DamageNumber:    r.DamageNumber,
			AnimalName:      r.AnimalName,
			OwnerName:       r.OwnerName,
			CreatedAt:       r.CreatedAt,
		}
	}
	return out, nil
}

func (e *Engine) persist(ctx context.Context, email *store.Email, v *Verdict) error {
	// The category column always holds the machine verdict; corrections
	// live in corrected_category so the original call stays auditable.
	email.Category = string(v.MachineCategory)
	email.CategorySource = string(v.Source)
	email.CatalogHash = e.catalog.Hash()
	email.SenderRole = string(v.SenderRole)
	email.CompType = string(v.CompType)

	email.Reference = v.Fields.Reference
	email.InsuranceNumber = v.Fields.InsuranceNumber
	email.DamageNumber = v.Fields.DamageNumber
	email.AnimalName = v.Fields.EffectiveAnimalName()
	email.OwnerName = v.Fields.OwnerName
	email.SettlementOre = oreOf(v.Fields.SettlementAmount)
	email.TotalOre = oreOf(v.Fields.TotalAmount)
	email.FolksamOtherOre = oreOf(v.Fields.FolksamOther)

	if v.Connection.Connected {
		id := v.Connection.ErrandID
		email.ErrandID = &id
	}
	email.MatchedOn = string(v.Connection.MatchedOn)

	if err := e.store.UpdateEmailTriage(ctx, email); err != nil {
		return fmt.Errorf("persisting verdict for email %d: %w", email.ID, err)
	}
	return nil
}

func oreOf(a *extract.Amount) *int64 {
	if a == nil {
		return nil
	}
	ore := a.Ore
	return &ore
}
