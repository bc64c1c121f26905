package voicelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/visibility"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const logColumns = `id, doctor_id, clinic_id, patient_id, call_id, phone_number, call_type, status,
	duration_seconds, transcript, confidence_score, actions, created_at`

func scanLog(row pgx.Row) (*Log, error) {
	var l Log
	var clinicID *uuid.UUID
	var actions []byte

	err := row.Scan(
		&l.ID,
		&l.DoctorID,
		&clinicID,
		&l.PatientID,
		&l.CallID,
		&l.PhoneNumber,
		&l.CallType,
		&l.Status,
		&l.DurationSeconds,
		&l.Transcript,
		&l.ConfidenceScore,
		&actions,
		&l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	if clinicID != nil {
		l.ClinicID = *clinicID
	}
	if err := json.Unmarshal(actions, &l.Actions); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}
	return &l, nil
}

func (r *PgRepository) Create(ctx context.Context, l *Log) error {
	actions, err := json.Marshal(l.Actions)
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}
	var clinicID *uuid.UUID
	if l.ClinicID != uuid.Nil {
		clinicID = &l.ClinicID
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO voice_agent_logs (`+logColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, l.ID, l.DoctorID, clinicID, l.PatientID, l.CallID, l.PhoneNumber, l.CallType, l.Status,
		l.DurationSeconds, l.Transcript, l.ConfidenceScore, actions, l.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateCall
		}
		return fmt.Errorf("insert voice log: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Log, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+logColumns+` FROM voice_agent_logs WHERE id = $1`, id)
	return scanLog(row)
}

func (r *PgRepository) List(ctx context.Context, c visibility.Criteria, f Filter) ([]Log, error) {
	where, args := c.Where(1)
	conds := []string{where}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CallType != "" {
		args = append(args, f.CallType)
		conds = append(conds, fmt.Sprintf("call_type = $%d", len(args)))
	}
	args = append(args, f.Limit, f.Offset)

	query := fmt.Sprintf(`SELECT %s FROM voice_agent_logs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		logColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}
