package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/visibility"
)

var ErrPatientNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, c visibility.Criteria, f Filter) ([]Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
}
