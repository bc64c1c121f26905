package actor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

// Resolver maps an identity to an Actor. First match wins:
// configured super-admin email, stored admin, stored doctor, new default doctor.
type Resolver struct {
	store        Store
	clinics      ClinicOwnership
	isSuperAdmin func(email string) bool
	logger       zerolog.Logger
	now          func() time.Time
}

func NewResolver(store Store, clinics ClinicOwnership, isSuperAdmin func(email string) bool, logger zerolog.Logger) *Resolver {
	if isSuperAdmin == nil {
		isSuperAdmin = func(string) bool { return false }
	}
	return &Resolver{
		store:        store,
		clinics:      clinics,
		isSuperAdmin: isSuperAdmin,
		logger:       logger,
		now:          time.Now,
	}
}

func (r *Resolver) Resolve(ctx context.Context, id Identity) (Actor, error) {
	if strings.TrimSpace(id.Subject) == "" {
		return nil, apperr.Validation("subject", "identity has no subject")
	}

	if r.isSuperAdmin(id.Email) {
		return superAdmin(id), nil
	}

	admin, err := r.store.FindAdminByUserID(ctx, id.Subject)
	switch {
	case err == nil:
		return admin, nil
	case errors.Is(err, ErrAdminNotFound):
	default:
		// Falling through can only yield a less privileged actor.
		r.logger.Warn().Err(err).Str("subject", id.Subject).Msg("admin lookup failed, continuing as doctor")
	}

	doc, err := r.store.FindDoctorByUserID(ctx, id.Subject)
	switch {
	case err == nil:
	case errors.Is(err, ErrDoctorNotFound):
		doc, err = r.createDefaultDoctor(ctx, id)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Storage("load doctor profile", err)
	}

	owned, err := r.clinics.ListOwnedClinicIDs(ctx, doc.ID)
	if err != nil {
		r.logger.Warn().Err(err).Str("doctor_id", doc.ID.String()).Msg("list owned clinics failed, using none")
		owned = nil
	}
	doc.OwnedClinics = owned

	return doc, nil
}

// createDefaultDoctor persists a starter profile for id. When a concurrent
// request stored one first, that stored profile is returned instead.
func (r *Resolver) createDefaultDoctor(ctx context.Context, id Identity) (*Doctor, error) {
	name := id.Name
	if name == "" {
		name = id.Email
	}
	doc := &Doctor{
		ID:        uuid.New(),
		UserID:    id.Subject,
		EmailAddr: id.Email,
		Name:      name,
		Plan:      DefaultPlan,
		CreatedAt: r.now(),
	}
	err := r.store.CreateDoctor(ctx, doc)
	switch {
	case err == nil:
	case errors.Is(err, ErrDoctorExists):
		stored, ferr := r.store.FindDoctorByUserID(ctx, id.Subject)
		if ferr != nil {
			return nil, apperr.Storage("load doctor profile", ferr)
		}
		return stored, nil
	default:
		// The dashboard stays usable on the in-memory profile.
		r.logger.Error().Err(err).Str("subject", id.Subject).Msg("persist default doctor profile failed")
	}
	return doc, nil
}

func superAdmin(id Identity) *Admin {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	perms := make([]Permission, len(SuperAdminPermissions))
	copy(perms, SuperAdminPermissions)
	return &Admin{
		ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte("super-admin:"+email)),
		UserID:      id.Subject,
		EmailAddr:   id.Email,
		Name:        id.Name,
		Permissions: perms,
		SuperAdmin:  true,
	}
}
