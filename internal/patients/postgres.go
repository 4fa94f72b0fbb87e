package patients

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createPatientsTable = `
CREATE TABLE IF NOT EXISTS patients (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT        NOT NULL,
	age        INTEGER     NOT NULL,
	gender     TEXT        NOT NULL,
	city       TEXT        NOT NULL DEFAULT '',
	state      TEXT        NOT NULL DEFAULT '',
	country    TEXT        NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores records in the patients table. Rows are only inserted.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres ensures the patients table exists.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, createPatientsTable); err != nil {
		return nil, fmt.Errorf("create patients table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Append(ctx context.Context, r Record) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO patients (name, age, gender, city, state, country) VALUES ($1, $2, $3, $4, $5, $6)`,
		r.Name, r.Age, r.Gender, r.City, r.State, r.Country,
	)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT name, age, gender, city, state, country FROM patients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.Age, &r.Gender, &r.City, &r.State, &r.Country); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return out, nil
}
