// Package chrono assembles chronological case logs: connected emails,
// chat messages, admin comments and transactions merged into one
// timeline per errand, oldest first. Errands are selected by id, by
// claim reference or by creation date range. An LLM summary per errand
// is optional and never fatal.
package chrono

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vetbolaget/triage/internal/llm"
	"github.com/vetbolaget/triage/internal/store"
)

// EntryKind tags where a timeline entry came from.
type EntryKind string

const (
	KindEmail       EntryKind = "email"
	KindChat        EntryKind = "chat"
	KindComment     EntryKind = "comment"
	KindTransaction EntryKind = "transaction"
)

// Entry is one row of the merged timeline.
type Entry struct {
	Kind      EntryKind
	At        time.Time
	Author    string
	Text      string
	AmountOre int64 // transactions only
}

// Group is the complete case log for one errand.
type Group struct {
	ErrandID  int64
	Reference string
	Entries   []Entry
	Analysis  string // LLM summary, or an error placeholder
}

// Source is what the builder reads. *store.SQLiteStore satisfies it.
type Source interface {
	GetErrand(ctx context.Context, id int64) (*store.Errand, error)
	FindErrandByReference(ctx context.Context, reference string) (*store.Errand, error)
	ErrandsInRange(ctx context.Context, from, to time.Time) ([]*store.Errand, error)
	ErrandEmails(ctx context.Context, errandID int64) ([]*store.Email, error)
	ChatMessages(ctx context.Context, errandID int64) ([]*store.ChatMessage, error)
	Comments(ctx context.Context, errandID int64) ([]*store.Comment, error)
	Transactions(ctx context.Context, errandID int64) ([]*store.Transaction, error)
}

// Builder assembles timelines.
type Builder struct {
	source   Source
	provider llm.Provider // nil = no analysis
}

// New creates a Builder. provider may be nil.
func New(source Source, provider llm.Provider) *Builder {
	return &Builder{source: source, provider: provider}
}

// Build assembles the timeline for one errand. When a provider is
// configured, Analysis holds its summary; a provider failure degrades to
// a placeholder rather than failing the build.
func (b *Builder) Build(ctx context.Context, errandID int64) (*Group, error) {
	errand, err := b.source.GetErrand(ctx, errandID)
	if err != nil {
		return nil, fmt.Errorf("loading errand: %w", err)
	}

	emails, err := b.source.ErrandEmails(ctx, errandID)
	if err != nil {
		return nil, fmt.Errorf("loading emails: %w", err)
	}
	chats, err := b.source.ChatMessages(ctx, errandID)
	if err != nil {
		return nil, fmt.Errorf("loading chat messages: %w", err)
	}
	comments, err := b.source.Comments(ctx, errandID)
	if err != nil {
		return nil, fmt.Errorf("loading comments: %w", err)
	}
	txs, err := b.source.Transactions(ctx, errandID)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	g := &Group{ErrandID: errandID, Reference: errand.Reference}
	for _, e := range emails {
		g.Entries = append(g.Entries, Entry{
			Kind:   KindEmail,
			At:     e.CreatedAt,
			Author: e.FromAddress,
			Text:   e.Subject,
		})
	}
	for _, m := range chats {
		g.Entries = append(g.Entries, Entry{Kind: KindChat, At: m.CreatedAt, Author: m.Author, Text: m.Body})
	}
	for _, c := range comments {
		g.Entries = append(g.Entries, Entry{Kind: KindComment, At: c.CreatedAt, Author: c.Author, Text: c.Body})
	}
	for _, t := range txs {
		g.Entries = append(g.Entries, Entry{
			Kind:      KindTransaction,
			At:        t.CreatedAt,
			Text:      t.Note,
			AmountOre: t.AmountOre,
		})
	}

	sort.SliceStable(g.Entries, func(i, j int) bool {
		return g.Entries[i].At.Before(g.Entries[j].At)
	})

	if b.provider != nil && len(g.Entries) > 0 {
		g.Analysis = b.analyze(ctx, g)
	}
	return g, nil
}

// BuildByReference assembles the timeline for the errand carrying the
// given claim reference.
func (b *Builder) BuildByReference(ctx context.Context, reference string) (*Group, error) {
	errand, err := b.source.FindErrandByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("resolving reference: %w", err)
	}
	if errand == nil {
		return nil, fmt.Errorf("no errand with reference %q", reference)
	}
	return b.Build(ctx, errand.ID)
}

// BuildRange assembles one timeline per errand created in [from, to],
// oldest errand first. An empty range yields an empty slice, not an
// error.
func (b *Builder) BuildRange(ctx context.Context, from, to time.Time) ([]*Group, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s precedes start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	errands, err := b.source.ErrandsInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading errands in range: %w", err)
	}

	groups := make([]*Group, 0, len(errands))
	for _, e := range errands {
		g, err := b.Build(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

const analysisSystem = "Du är handläggare på ett förmedlingsbolag för veterinärvårdsersättning. " +
	"Sammanfatta ärendeloggen nedan i högst tre meningar på svenska."

func (b *Builder) analyze(ctx context.Context, g *Group) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ärende %s\n", g.Reference)
	for _, e := range g.Entries {
		fmt.Fprintf(&sb, "[%s] %s %s: %s\n", e.At.Format("2006-01-02 15:04"), e.Kind, e.Author, e.Text)
		if e.Kind == KindTransaction {
			fmt.Fprintf(&sb, "  belopp: %.2f kr\n", float64(e.AmountOre)/100)
		}
	}

	out, err := b.provider.Complete(ctx, sb.String(), llm.CompletionOpts{
		System:    analysisSystem,
		MaxTokens: 300,
	})
	if err != nil {
		return fmt.Sprintf("(analys saknas: %v)", err)
	}
	return out
}
