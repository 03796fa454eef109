package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const emailColumns = `id, message_id, from_address, to_address, subject, text_plain, text_html,
	attachment_text, created_at, processed_at, category, corrected_category, category_source,
	catalog_hash, sender_role, comp_type, reference, insurance_number, damage_number,
	animal_name, owner_name, settlement_ore, total_ore, folksam_other_ore, errand_id, matched_on`

// AddEmail inserts a raw inbound email. Triage columns start empty.
func (s *SQLiteStore) AddEmail(ctx context.Context, e *Email) (int64, error) {
	if e.MessageID == "" {
		return 0, fmt.Errorf("email requires a message id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO emails (message_id, from_address, to_address, subject, text_plain, text_html, attachment_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MessageID, e.FromAddress, e.ToAddress, e.Subject, e.TextPlain, e.TextHTML, e.AttachmentText, e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting email: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting email id: %w", err)
	}
	e.ID = id
	return id, nil
}

// GetEmail loads one email by id.
func (s *SQLiteStore) GetEmail(ctx context.Context, id int64) (*Email, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = ?`, id)
	e, err := scanEmail(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("email %d not found", id)
	}
	return e, err
}

// FindEmailByMessageID loads an email by its message id, or nil if absent.
func (s *SQLiteStore) FindEmailByMessageID(ctx context.Context, messageID string) (*Email, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+emailColumns+` FROM emails WHERE message_id = ?`, messageID)
	e, err := scanEmail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// UnprocessedEmails returns emails awaiting triage, oldest first.
func (s *SQLiteStore) UnprocessedEmails(ctx context.Context, limit int) ([]*Email, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+emailColumns+` FROM emails
		WHERE processed_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unprocessed emails: %w", err)
	}
	defer rows.Close()
	return scanEmails(rows)
}

// UpdateEmailTriage writes the pipeline's verdict back onto the row and
// stamps processed_at.
func (s *SQLiteStore) UpdateEmailTriage(ctx context.Context, e *Email) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE emails SET
			processed_at = ?,
			category = ?, corrected_category = ?, category_source = ?, catalog_hash = ?,
			sender_role = ?, comp_type = ?,
			reference = ?, insurance_number = ?, damage_number = ?,
			animal_name = ?, owner_name = ?,
			settlement_ore = ?, total_ore = ?, folksam_other_ore = ?,
			errand_id = ?, matched_on = ?
		WHERE id = ?`,
		now,
		e.Category, e.CorrectedCategory, e.CategorySource, e.CatalogHash,
		e.SenderRole, e.CompType,
		e.Reference, e.InsuranceNumber, e.DamageNumber,
		e.AnimalName, e.OwnerName,
		e.SettlementOre, e.TotalOre, e.FolksamOtherOre,
		e.ErrandID, e.MatchedOn,
		e.ID)
	if err != nil {
		return fmt.Errorf("updating email triage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("email %d not found", e.ID)
	}
	e.ProcessedAt = &now
	return nil
}

// SetCorrectedCategory records a handler override for one email. The
// machine verdict in the category column is left untouched; an empty
// category clears the override and hands the verdict back to the rules.
func (s *SQLiteStore) SetCorrectedCategory(ctx context.Context, id int64, category string) error {
	source := "corrected"
	if category == "" {
		source = "rules"
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE emails SET corrected_category = ?, category_source = ?
		WHERE id = ?`, category, source, id)
	if err != nil {
		return fmt.Errorf("setting corrected category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("email %d not found", id)
	}
	return nil
}

// ResetEmailTriage clears the verdict so a re-run can reconsider the
// email, including its errand connection.
func (s *SQLiteStore) ResetEmailTriage(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE emails SET
			processed_at = NULL,
			category = '', corrected_category = '', category_source = '', catalog_hash = '',
			sender_role = '', comp_type = '',
			reference = '', insurance_number = '', damage_number = '',
			animal_name = '', owner_name = '',
			settlement_ore = NULL, total_ore = NULL, folksam_other_ore = NULL,
			errand_id = NULL, matched_on = ''
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("resetting email triage: %w", err)
	}
	return nil
}

// LabeledEmails returns processed emails whose category was confirmed or
// corrected by an admin. They form the similarity-search corpus.
func (s *SQLiteStore) LabeledEmails(ctx context.Context, limit int) ([]*Email, error) {
	if limit <= 0 {
		limit = 5000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+emailColumns+` FROM emails
		WHERE processed_at IS NOT NULL
		  AND (corrected_category != '' OR category_source = 'rules')
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying labeled emails: %w", err)
	}
	defer rows.Close()
	return scanEmails(rows)
}

// StaleEmails returns processed emails whose verdict was produced by a
// different catalog revision than the current one.
func (s *SQLiteStore) StaleEmails(ctx context.Context, catalogHash string, limit int) ([]*Email, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+emailColumns+` FROM emails
		WHERE processed_at IS NOT NULL AND catalog_hash != ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, catalogHash, limit)
	if err != nil {
		return nil, fmt.Errorf("querying stale emails: %w", err)
	}
	defer rows.Close()
	return scanEmails(rows)
}

// SearchEmails matches a single term against the subject, body, sender
// and extracted identifiers, newest first. Matching is case-insensitive;
// LIKE metacharacters in the term are escaped.
func (s *SQLiteStore) SearchEmails(ctx context.Context, term string, limit int) ([]*Email, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(term) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+emailColumns+` FROM emails
		WHERE subject LIKE ? ESCAPE '\'
		   OR text_plain LIKE ? ESCAPE '\'
		   OR attachment_text LIKE ? ESCAPE '\'
		   OR from_address LIKE ? ESCAPE '\'
		   OR reference LIKE ? ESCAPE '\'
		   OR insurance_number LIKE ? ESCAPE '\'
		   OR damage_number LIKE ? ESCAPE '\'
		   OR animal_name LIKE ? ESCAPE '\'
		   OR owner_name LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching emails: %w", err)
	}
	defer rows.Close()
	return scanEmails(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ErrandEmails returns the emails connected to an errand, oldest first.
func (s *SQLiteStore) ErrandEmails(ctx context.Context, errandID int64) ([]*Email, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+emailColumns+` FROM emails
		WHERE errand_id = ?
		ORDER BY created_at ASC, id ASC`, errandID)
	if err != nil {
		return nil, fmt.Errorf("querying errand emails: %w", err)
	}
	defer rows.Close()
	return scanEmails(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmail(row rowScanner) (*Email, error) {
	var e Email
	err := row.Scan(
		&e.ID, &e.MessageID, &e.FromAddress, &e.ToAddress, &e.Subject, &e.TextPlain, &e.TextHTML,
		&e.AttachmentText, &e.CreatedAt, &e.ProcessedAt, &e.Category, &e.CorrectedCategory,
		&e.CategorySource, &e.CatalogHash, &e.SenderRole, &e.CompType, &e.Reference,
		&e.InsuranceNumber, &e.DamageNumber, &e.AnimalName, &e.OwnerName,
		&e.SettlementOre, &e.TotalOre, &e.FolksamOtherOre, &e.ErrandID, &e.MatchedOn)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning email: %w", err)
	}
	return &e, nil
}

func scanEmails(rows *sql.Rows) ([]*Email, error) {
	var out []*Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating emails: %w", err)
	}
	return out, nil
}
