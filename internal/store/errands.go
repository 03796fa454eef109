package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const errandColumns = `id, reference, clinic_name, clinic_email, insurer_name,
	insurance_number, damage_number, animal_name, owner_name, created_at`

// AddErrand inserts one errand register row.
func (s *SQLiteStore) AddErrand(ctx context.Context, e *Errand) (int64, error) {
	if e.Reference == "" {
		return 0, fmt.Errorf("errand requires a reference")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO errands (reference, clinic_name, clinic_email, insurer_name,
			insurance_number, damage_number, animal_name, owner_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Reference, e.ClinicName, e.ClinicEmail, e.InsurerName,
		e.InsuranceNumber, e.DamageNumber, e.AnimalName, e.OwnerName, e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting errand: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting errand id: %w", err)
	}
	e.ID = id
	return id, nil
}

// GetErrand loads one errand by id.
func (s *SQLiteStore) GetErrand(ctx context.Context, id int64) (*Errand, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+errandColumns+` FROM errands WHERE id = ?`, id)
	e, err := scanErrand(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("errand %d not found", id)
	}
	return e, err
}

// FindErrandByReference loads an errand by its claim reference, or nil
// if absent. Should the register ever hold duplicate references, the
// oldest row wins.
func (s *SQLiteStore) FindErrandByReference(ctx context.Context, reference string) (*Errand, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+errandColumns+` FROM errands WHERE reference = ? ORDER BY id ASC LIMIT 1`, reference)
	e, err := scanErrand(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ErrandsInRange returns errands created in [from, to], oldest first.
func (s *SQLiteStore) ErrandsInRange(ctx context.Context, from, to time.Time) ([]*Errand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+errandColumns+` FROM errands
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at ASC, id ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying errands in range: %w", err)
	}
	defer rows.Close()
	return scanErrands(rows)
}

// CandidateErrands returns errands created within the window around a
// reference time. The connector runs its cascade over this set.
func (s *SQLiteStore) CandidateErrands(ctx context.Context, around time.Time, window time.Duration) ([]*Errand, error) {
	if window <= 0 {
		window = 90 * 24 * time.Hour
	}
	lo, hi := around.Add(-window), around.Add(window)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+errandColumns+` FROM errands
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at DESC`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("querying candidate errands: %w", err)
	}
	defer rows.Close()
	return scanErrands(rows)
}

func scanErrands(rows *sql.Rows) ([]*Errand, error) {
	var out []*Errand
	for rows.Next() {
		e, err := scanErrand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating errands: %w", err)
	}
	return out, nil
}

func scanErrand(row rowScanner) (*Errand, error) {
	var e Errand
	err := row.Scan(&e.ID, &e.Reference, &e.ClinicName, &e.ClinicEmail, &e.InsurerName,
		&e.InsuranceNumber, &e.DamageNumber, &e.AnimalName, &e.OwnerName, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning errand: %w", err)
	}
	return &e, nil
}
