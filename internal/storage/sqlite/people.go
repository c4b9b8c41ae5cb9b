package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/memobot/internal/core"
)

type PeopleRepo struct {
	db *sql.DB
}

func NewPeopleRepo(db *sql.DB) *PeopleRepo {
	return &PeopleRepo{db: db}
}

func (r *PeopleRepo) Create(ctx context.Context, p core.Person, normalizedName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO person (id, display_name, normalized_name, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.DisplayName, normalizedName, formatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("person %q: %w", normalizedName, core.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert person: %w", err)
	}

	// Aliases passed at creation are spellings of normalizedName.
	for _, alias := range p.Aliases {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO person_alias (person_id, alias, normalized_alias, created_at) VALUES (?, ?, ?, ?)`,
			p.ID, alias, normalizedName, formatTime(p.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert person alias: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PeopleRepo) Get(ctx context.Context, id string) (core.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, display_name, created_at FROM person WHERE id = ?`, id)
	return r.scanWithAliases(ctx, row)
}

func (r *PeopleRepo) FindByName(ctx context.Context, normalizedName string) (core.Person, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.display_name, p.created_at
		FROM person p
		WHERE p.normalized_name = ?
		UNION
		SELECT p.id, p.display_name, p.created_at
		FROM person p
		JOIN person_alias a ON a.person_id = p.id
		WHERE a.normalized_alias = ?
		LIMIT 1`,
		normalizedName, normalizedName,
	)
	return r.scanWithAliases(ctx, row)
}

// AddAlias is append-only; an alias already known for anyone is ignored.
func (r *PeopleRepo) AddAlias(ctx context.Context, personID, alias, normalizedAlias string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO person_alias (person_id, alias, normalized_alias, created_at) VALUES (?, ?, ?, ?)`,
		personID, alias, normalizedAlias, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("failed to add alias: %w", err)
	}
	return nil
}

func (r *PeopleRepo) List(ctx context.Context) ([]core.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, display_name, created_at FROM person ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	var people []core.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range people {
		if people[i].Aliases, err = r.aliases(ctx, people[i].ID); err != nil {
			return nil, err
		}
	}
	return people, nil
}

func (r *PeopleRepo) scanWithAliases(ctx context.Context, row *sql.Row) (core.Person, error) {
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Person{}, core.ErrNotFound
	}
	if err != nil {
		return core.Person{}, err
	}
	p.Aliases, err = r.aliases(ctx, p.ID)
	return p, err
}

func (r *PeopleRepo) aliases(ctx context.Context, personID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT alias FROM person_alias WHERE person_id = ? ORDER BY created_at, alias`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(s scanner) (core.Person, error) {
	var p core.Person
	var created string
	if err := s.Scan(&p.ID, &p.DisplayName, &created); err != nil {
		return core.Person{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return core.Person{}, fmt.Errorf("person %s created_at: %w", p.ID, err)
	}
	p.CreatedAt = t
	return p, nil
}
