package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrClinicNotFound = errors.New("clinic not found")

type Repository interface {
	Create(ctx context.Context, c *Clinic) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Clinic, error)
	ListAll(ctx context.Context) ([]Clinic, error)

	// Satisfies actor.ClinicOwnership.
	ListOwnedClinicIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)
}
