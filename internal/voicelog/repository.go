package voicelog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/visibility"
)

var (
	ErrLogNotFound = errors.New("voice log not found")
	// ErrDuplicateCall is returned when a call_id was already recorded.
	ErrDuplicateCall = errors.New("call already recorded")
)

type Repository interface {
	Create(ctx context.Context, l *Log) error
	GetByID(ctx context.Context, id uuid.UUID) (*Log, error)
	List(ctx context.Context, c visibility.Criteria, f Filter) ([]Log, error)
}
