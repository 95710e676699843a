package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/freeday/internal/model"
	"github.com/google/uuid"
)

type PersonStore struct {
	db *sql.DB
}

func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: db}
}

func (s *PersonStore) Create(name, color string) (*model.Person, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO people (id, name, color) VALUES (?, ?, ?)",
		id, name, color,
	)
	if err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	return s.GetByID(id)
}

// List returns every person ordered by name.
func (s *PersonStore) List() ([]model.Person, error) {
	rows, err := s.db.Query("SELECT id, name, color, created_at FROM people ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		var p model.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s *PersonStore) GetByID(id string) (*model.Person, error) {
	var p model.Person
	err := s.db.QueryRow(
		"SELECT id, name, color, created_at FROM people WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Color, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query person: %w", err)
	}
	return &p, nil
}

func (s *PersonStore) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM people WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}

func (s *PersonStore) NameExists(name string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM people WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}
