package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/freeday/internal/model"
)

type AvailabilityStore struct {
	db *sql.DB
}

func NewAvailabilityStore(db *sql.DB) *AvailabilityStore {
	return &AvailabilityStore{db: db}
}

// ListRange returns rows with from <= day <= to. Days are ISO strings, so
// lexical order is calendar order.
func (s *AvailabilityStore) ListRange(from, to string) ([]model.AvailabilityRow, error) {
	rows, err := s.db.Query(
		`SELECT person_id, day, available, updated_at FROM availability
		 WHERE day BETWEEN ? AND ? ORDER BY day, person_id`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	defer rows.Close()

	var result []model.AvailabilityRow
	for rows.Next() {
		var r model.AvailabilityRow
		if err := rows.Scan(&r.PersonID, &r.Day, &r.Available, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListForPerson returns one person's rows in [from, to] ordered by day.
func (s *AvailabilityStore) ListForPerson(personID, from, to string) ([]model.AvailabilityRow, error) {
	rows, err := s.db.Query(
		`SELECT person_id, day, available, updated_at FROM availability
		 WHERE person_id = ? AND day BETWEEN ? AND ? ORDER BY day`,
		personID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query person availability: %w", err)
	}
	defer rows.Close()

	var result []model.AvailabilityRow
	for rows.Next() {
		var r model.AvailabilityRow
		if err := rows.Scan(&r.PersonID, &r.Day, &r.Available, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Upsert writes the status for (personID, day). Last write wins.
func (s *AvailabilityStore) Upsert(personID, day string, available bool) (*model.AvailabilityRow, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO availability (person_id, day, available, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(person_id, day) DO UPDATE SET available = excluded.available, updated_at = excluded.updated_at`,
		personID, day, available, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert availability: %w", err)
	}
	return s.Get(personID, day)
}

func (s *AvailabilityStore) Get(personID, day string) (*model.AvailabilityRow, error) {
	var r model.AvailabilityRow
	err := s.db.QueryRow(
		"SELECT person_id, day, available, updated_at FROM availability WHERE person_id = ? AND day = ?",
		personID, day,
	).Scan(&r.PersonID, &r.Day, &r.Available, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query availability row: %w", err)
	}
	return &r, nil
}
