// Package store is the SQLite storage layer for the triage pipeline.
//
// One database file holds everything: raw inbound emails, their triage
// verdicts, the errand register, and the per-errand case log (chat
// messages, comments, transactions). Amounts are stored in öre.
//
// Case-log rows and the admin register are written by the upstream
// errand system, not by this service: the triage pipeline and CLI only
// read them. The writers (AddChatMessage, AddComment, AddTransaction,
// AddAdmin) exist for that sync path and for seeding fixtures.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.triage/triage.db"

// Email is one inbound email with its triage verdict. Triage columns are
// NULL until the pipeline has processed the row.
type Email struct {
	ID             int64
	MessageID      string
	FromAddress    string
	ToAddress      string
	Subject        string
	TextPlain      string
	TextHTML       string
	AttachmentText string
	CreatedAt      time.Time

	// Triage verdict, written by the pipeline. Category is always the
	// machine verdict; a handler override goes into CorrectedCategory
	// and takes precedence everywhere the category is acted on.
	ProcessedAt       *time.Time
	Category          string
	CorrectedCategory string
	CategorySource    string
	CatalogHash       string
	SenderRole        string
	CompType          string

	// Extracted fields.
	Reference       string
	InsuranceNumber string
	DamageNumber    string
	AnimalName      string
	OwnerName       string
	SettlementOre   *int64
	TotalOre        *int64
	FolksamOtherOre *int64

	// Connection verdict.
	ErrandID  *int64
	MatchedOn string
}

// Errand is one row of the errand register.
type Errand struct {
	ID              int64
	Reference       string
	ClinicName      string
	ClinicEmail     string
	InsurerName     string
	InsuranceNumber string
	DamageNumber    string
	AnimalName      string
	OwnerName       string
	CreatedAt       time.Time
}

// ChatMessage, Comment and Transaction are the case-log row kinds.
type ChatMessage struct {
	ID        int64
	ErrandID  int64
	Author    string
	Body      string
	CreatedAt time.Time
}

type Comment struct {
	ID        int64
	ErrandID  int64
	Author    string
	Body      string
	CreatedAt time.Time
}

type Transaction struct {
	ID        int64
	ErrandID  int64
	AmountOre int64
	Kind      string // "settlement", "payment", "adjustment"
	Note      string
	CreatedAt time.Time
}

// Config holds configuration for New.
type Config struct {
	DBPath string
}

// Store is the storage interface the pipeline and CLI depend on.
type Store interface {
	// Emails
	AddEmail(ctx context.Context, e *Email) (int64, error)
	GetEmail(ctx context.Context, id int64) (*Email, error)
	UnprocessedEmails(ctx context.Context, limit int) ([]*Email, error)
	UpdateEmailTriage(ctx context.Context, e *Email) error
	SetCorrectedCategory(ctx context.Context, id int64, category string) error
	ResetEmailTriage(ctx context.Context, id int64) error
	LabeledEmails(ctx context.Context, limit int) ([]*Email, error)
	FindEmailByMessageID(ctx context.Context, messageID string) (*Email, error)
	StaleEmails(ctx context.Context, catalogHash string, limit int) ([]*Email, error)
	SearchEmails(ctx context.Context, term string, limit int) ([]*Email, error)

	// Errands
	AddErrand(ctx context.Context, e *Errand) (int64, error)
	GetErrand(ctx context.Context, id int64) (*Errand, error)
	FindErrandByReference(ctx context.Context, reference string) (*Errand, error)
	ErrandsInRange(ctx context.Context, from, to time.Time) ([]*Errand, error)
	CandidateErrands(ctx context.Context, around time.Time, window time.Duration) ([]*Errand, error)

	// Case log
	AddChatMessage(ctx context.Context, m *ChatMessage) (int64, error)
	AddComment(ctx context.Context, c *Comment) (int64, error)
	AddTransaction(ctx context.Context, t *Transaction) (int64, error)
	ChatMessages(ctx context.Context, errandID int64) ([]*ChatMessage, error)
	Comments(ctx context.Context, errandID int64) ([]*Comment, error)
	Transactions(ctx context.Context, errandID int64) ([]*Transaction, error)
	ErrandEmails(ctx context.Context, errandID int64) ([]*Email, error)

	// Admins
	IsAdmin(ctx context.Context, email string) (bool, error)
	AddAdmin(ctx context.Context, email, name string) error

	Close() error
}

// SQLiteStore implements Store on database/sql with modernc sqlite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// New opens (or creates) the database and runs migrations.
// Pass ":memory:" for in-memory databases (testing).
func New(cfg Config) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
