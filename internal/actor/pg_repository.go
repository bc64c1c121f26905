package actor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE raised by doctors.user_id UNIQUE.
const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.EmailAddr,
		&d.Name,
		&d.Plan,
		&d.AppointmentsUsed,
		&d.VoiceMinutesUsed,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) FindDoctorByUserID(ctx context.Context, userID string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, email, name, plan, appointments_used, voice_minutes_used, created_at
		FROM doctors
		WHERE user_id = $1
	`, userID)
	return scanDoctor(row)
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (id, user_id, email, name, plan, appointments_used, voice_minutes_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.ID, d.UserID, d.EmailAddr, d.Name, d.Plan, d.AppointmentsUsed, d.VoiceMinutesUsed, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDoctorExists
		}
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

func (r *PgRepository) ListDoctors(ctx context.Context, limit, offset int) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, email, name, plan, appointments_used, voice_minutes_used, created_at
		FROM doctors
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) FindAdminByUserID(ctx context.Context, userID string) (*Admin, error) {
	var a Admin
	var perms []string

	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, email, name, permissions
		FROM admins
		WHERE user_id = $1
	`, userID).Scan(&a.ID, &a.UserID, &a.EmailAddr, &a.Name, &perms)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}

	for _, p := range perms {
		a.Permissions = append(a.Permissions, Permission(p))
	}
	return &a, nil
}

func (r *PgRepository) CreateAdmin(ctx context.Context, a *Admin) error {
	perms := make([]string, 0, len(a.Permissions))
	for _, p := range a.Permissions {
		perms = append(perms, string(p))
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admins (id, user_id, email, name, permissions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET permissions = EXCLUDED.permissions
	`, a.ID, a.UserID, a.EmailAddr, a.Name, perms)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}
