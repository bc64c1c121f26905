package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/visibility"
)

var ErrPrescriptionNotFound = errors.New("prescription not found")

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	List(ctx context.Context, c visibility.Criteria, f Filter) ([]Prescription, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
