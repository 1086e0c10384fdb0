package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"citamed/internal/appointment/models"
	"citamed/pkg/platform/sentinel"
)

// PostgresStore persists appointments in the central PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed appointment store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
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
	completed_at   TIMESTAMPTZ,
	metadata       JSONB       NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_appointments_insured_created
	ON appointments (insured_id, created_at DESC);
`

// EnsureSchema creates the appointments table and its listing index.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure appointments schema: %w", err)
	}
	return nil
}

// Create inserts only when the id is absent; a retried creation is rejected
// rather than duplicated.
func (s *PostgresStore) Create(ctx context.Context, appt *models.Appointment) error {
	metadata, err := marshalMetadata(appt.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO appointments (
			appointment_id, insured_id, schedule_id, country_iso,
			status, created_at, updated_at, completed_at, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (appointment_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		appt.ID,
		appt.InsuredID.String(),
		appt.ScheduleID,
		appt.Country.String(),
		appt.Status.String(),
		appt.CreatedAt,
		appt.UpdatedAt,
		appt.CompletedAt,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert appointment rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("appointment %s: %w", appt.ID, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := `
		SELECT appointment_id, insured_id, schedule_id, country_iso,
		       status, created_at, updated_at, completed_at, metadata
		FROM appointments
		WHERE appointment_id = $1
	`
	appt, err := scanAppointment(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("appointment %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return appt, nil
}

func (s *PostgresStore) ListByInsured(ctx context.Context, insuredID models.InsuredID) ([]*models.Appointment, error) {
	query := `
		SELECT appointment_id, insured_id, schedule_id, country_iso,
		       status, created_at, updated_at, completed_at, metadata
		FROM appointments
		WHERE insured_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, insuredID.String())
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var result []*models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		result = append(result, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return result, nil
}

// Update touches only an existing row; created_at and the identity columns
// never change after creation.
func (s *PostgresStore) Update(ctx context.Context, appt *models.Appointment) error {
	metadata, err := marshalMetadata(appt.Metadata)
	if err != nil {
		return err
	}
	query := `
		UPDATE appointments
		SET status = $2, updated_at = $3, completed_at = $4, metadata = $5
		WHERE appointment_id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		appt.ID,
		appt.Status.String(),
		appt.UpdatedAt,
		appt.CompletedAt,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appointment rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("appointment %s: %w", appt.ID, sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var (
		id          string
		insured     string
		scheduleID  int64
		country     string
		status      string
		createdAt   time.Time
		updatedAt   time.Time
		completedAt sql.NullTime
		metadata    []byte
	)
	if err := row.Scan(&id, &insured, &scheduleID, &country, &status, &createdAt, &updatedAt, &completedAt, &metadata); err != nil {
		return nil, err
	}

	var meta map[string]string
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	var completed *time.Time
	if completedAt.Valid {
		completed = &completedAt.Time
	}
	return models.Reconstruct(
		id,
		models.InsuredID(insured),
		scheduleID,
		models.CountryCode(country),
		models.Status(status),
		createdAt,
		updatedAt,
		completed,
		meta,
	), nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return b, nil
}
