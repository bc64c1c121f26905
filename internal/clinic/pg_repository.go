package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const clinicColumns = `id, owner_doctor_id, name, address_line, city, state, postal_code, phone, operating_hours, created_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	var hours []byte

	err := row.Scan(
		&c.ID,
		&c.OwnerDoctorID,
		&c.Name,
		&c.AddressLine,
		&c.City,
		&c.State,
		&c.PostalCode,
		&c.Phone,
		&hours,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, err
	}

	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &c.OperatingHours); err != nil {
			return nil, fmt.Errorf("decode operating hours: %w", err)
		}
	}
	return &c, nil
}

func (r *PgRepository) Create(ctx context.Context, c *Clinic) error {
	hours, err := json.Marshal(c.OperatingHours)
	if err != nil {
		return fmt.Errorf("encode operating hours: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO clinics (`+clinicColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.OwnerDoctorID, c.Name, c.AddressLine, c.City, c.State, c.PostalCode, c.Phone, hours, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert clinic: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE id = $1`, id)
	return scanClinic(row)
}

func (r *PgRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Clinic, error) {
	return r.list(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE owner_doctor_id = $1 ORDER BY name`, ownerID)
}

func (r *PgRepository) ListAll(ctx context.Context) ([]Clinic, error) {
	return r.list(ctx, `SELECT `+clinicColumns+` FROM clinics ORDER BY name`)
}

func (r *PgRepository) ListOwnedClinicIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM clinics WHERE owner_doctor_id = $1`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]Clinic, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}
