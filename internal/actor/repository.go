package actor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	// ErrDoctorExists is returned by CreateDoctor when the subject already has a profile.
	ErrDoctorExists   = errors.New("doctor profile already exists")
	ErrAdminNotFound  = errors.New("admin not found")
)

// Store is the slice of the external store the resolver needs.
type Store interface {
	FindAdminByUserID(ctx context.Context, userID string) (*Admin, error)
	FindDoctorByUserID(ctx context.Context, userID string) (*Doctor, error)
	CreateDoctor(ctx context.Context, d *Doctor) error
	ListDoctors(ctx context.Context, limit, offset int) ([]Doctor, error)
}

// ClinicOwnership lists the clinics owned by a doctor.
type ClinicOwnership interface {
	ListOwnedClinicIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)
}
