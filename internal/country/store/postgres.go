package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"citamed/internal/appointment/models"
)

// PostgresStore writes one country's appointments through a bounded pgx pool.
// A connection is held only for the duration of one transaction and released
// on every exit path.
type PostgresStore struct {
	pool    *pgxpool.Pool
	country models.CountryCode
}

// NewPostgres connects to the country database and verifies the connection.
// maxConns bounds the pool; zero keeps the pgx default.
func NewPostgres(ctx context.Context, dsn string, country models.CountryCode, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse %s store config: %w", country, err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s store pool: %w", country, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s store: %w", country, err)
	}
	return &PostgresStore{pool: pool, country: country}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS appointments (
	appointment_id TEXT PRIMARY KEY,
	insured_id     TEXT        NOT NULL,
	schedule_id    BIGINT      NOT NULL,
	country_iso    TEXT        NOT NULL,
	status         TEXT        NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	metadata       JSONB       NOT NULL DEFAULT '{}'
)`

// EnsureSchema creates the country appointments table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure %s store schema: %w", s.country, err)
	}
	return nil
}

// Upsert writes the record inside one transaction. On conflict the mutable
// columns are replaced; identity columns stay as first written.
func (s *PostgresStore) Upsert(ctx context.Context, appt *models.Appointment) error {
	metadata := appt.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata for %s store: %w", s.country, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s store tx: %w", s.country, err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO appointments (
			appointment_id, insured_id, schedule_id, country_iso,
			status, created_at, updated_at, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (appointment_id) DO UPDATE SET
			status     = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			metadata   = EXCLUDED.metadata
	`
	if _, err := tx.Exec(ctx, query,
		appt.ID,
		appt.InsuredID.String(),
		appt.ScheduleID,
		appt.Country.String(),
		appt.Status.String(),
		appt.CreatedAt,
		appt.UpdatedAt,
		payload,
	); err != nil {
		return fmt.Errorf("upsert appointment in %s store: %w", s.country, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit appointment in %s store: %w", s.country, err)
	}
	return nil
}

// Close shuts the pool down, waiting for acquired connections to be released.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
