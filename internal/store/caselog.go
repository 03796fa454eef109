package store

import (
	"context"
	"fmt"
	"time"
)

// AddChatMessage appends one chat message to an errand's case log.
func (s *SQLiteStore) AddChatMessage(ctx context.Context, m *ChatMessage) (int64, error) {
	if m.ErrandID == 0 {
		return 0, fmt.Errorf("chat message requires an errand id")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (errand_id, author, body, created_at)
		VALUES (?, ?, ?, ?)`,
		m.ErrandID, m.Author, m.Body, m.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting chat message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting chat message id: %w", err)
	}
	m.ID = id
	return id, nil
}

// AddComment appends one admin comment to an errand's case log.
func (s *SQLiteStore) AddComment(ctx context.Context, c *Comment) (int64, error) {
	if c.ErrandID == 0 {
		return 0, fmt.Errorf("comment requires an errand id")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (errand_id, author, body, created_at)
		VALUES (?, ?, ?, ?)`,
		c.ErrandID, c.Author, c.Body, c.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting comment id: %w", err)
	}
	c.ID = id
	return id, nil
}

// AddTransaction appends one money movement to an errand's case log.
func (s *SQLiteStore) AddTransaction(ctx context.Context, t *Transaction) (int64, error) {
	if t.ErrandID == 0 {
		return 0, fmt.Errorf("transaction requires an errand id")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (errand_id, amount_ore, kind, note, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ErrandID, t.AmountOre, t.Kind, t.Note, t.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transaction id: %w", err)
	}
	t.ID = id
	return id, nil
}

// ChatMessages returns an errand's chat messages, oldest first.
func (s *SQLiteStore) ChatMessages(ctx context.Context, errandID int64) ([]*ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, errand_id, author, body, created_at FROM chat_messages
		WHERE errand_id = ? ORDER BY created_at ASC, id ASC`, errandID)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	var out []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ErrandID, &m.Author, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat messages: %w", err)
	}
	return out, nil
}

// Comments returns an errand's comments, oldest first.
func (s *SQLiteStore) Comments(ctx context.Context, errandID int64) ([]*Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, errand_id, author, body, created_at FROM comments
		WHERE errand_id = ? ORDER BY created_at ASC, id ASC`, errandID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	var out []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ErrandID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}
	return out, nil
}

// Transactions returns an errand's money movements, oldest first.
func (s *SQLiteStore) Transactions(ctx context.Context, errandID int64) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, errand_id, amount_ore, kind, note, created_at FROM transactions
		WHERE errand_id = ? ORDER BY created_at ASC, id ASC`, errandID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.ErrandID, &t.AmountOre, &t.Kind, &t.Note, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return out, nil
}

// IsAdmin reports whether an email address belongs to a registered admin.
func (s *SQLiteStore) IsAdmin(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins WHERE email = ? COLLATE NOCASE`, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying admins: %w", err)
	}
	return n > 0, nil
}

// AddAdmin registers an admin address.
func (s *SQLiteStore) AddAdmin(ctx context.Context, email, name string) error {
	if email == "" {
		return fmt.Errorf("admin requires an email address")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO admins (email, name) VALUES (?, ?)`, email, name)
	if err != nil {
		return fmt.Errorf("inserting admin: %w", err)
	}
	return nil
}
