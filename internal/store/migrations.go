package store

import "fmt"

// migrate creates all tables if they don't exist. DDL is idempotent so
// startup can always run it.
func (s *SQLiteStore) migrate() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS emails (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			from_address TEXT NOT NULL,
			to_address TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			text_plain TEXT NOT NULL DEFAULT '',
			text_html TEXT NOT NULL DEFAULT '',
			attachment_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,

			processed_at TIMESTAMP,
			category TEXT NOT NULL DEFAULT '',
			corrected_category TEXT NOT NULL DEFAULT '',
			category_source TEXT NOT NULL DEFAULT '',
			catalog_hash TEXT NOT NULL DEFAULT '',
			sender_role TEXT NOT NULL DEFAULT '',
			comp_type TEXT NOT NULL DEFAULT '',

			reference TEXT NOT NULL DEFAULT '',
			insurance_number TEXT NOT NULL DEFAULT '',
			damage_number TEXT NOT NULL DEFAULT '',
			animal_name TEXT NOT NULL DEFAULT '',
			owner_name TEXT NOT NULL DEFAULT '',
			settlement_ore INTEGER,
			total_ore INTEGER,
			folksam_other_ore INTEGER,

			errand_id INTEGER REFERENCES errands(id),
			matched_on TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS errands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT NOT NULL,
			clinic_name TEXT NOT NULL DEFAULT '',
			clinic_email TEXT NOT NULL DEFAULT '',
			insurer_name TEXT NOT NULL DEFAULT '',
			insurance_number TEXT NOT NULL DEFAULT '',
			damage_number TEXT NOT NULL DEFAULT '',
			animal_name TEXT NOT NULL DEFAULT '',
			owner_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			errand_id INTEGER NOT NULL REFERENCES errands(id),
			author TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			errand_id INTEGER NOT NULL REFERENCES errands(id),
			author TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			errand_id INTEGER NOT NULL REFERENCES errands(id),
			amount_ore INTEGER NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_processed ON emails(processed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_errand ON emails(errand_id)`,
		`CREATE INDEX IF NOT EXISTS idx_errands_reference ON errands(reference)`,
		`CREATE INDEX IF NOT EXISTS idx_errands_created ON errands(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_errand ON chat_messages(errand_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_errand ON comments(errand_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_errand ON transactions(errand_id, created_at)`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}
	return nil
}
