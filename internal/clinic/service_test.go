package clinic

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

type fakeRepo struct {
	clinics map[uuid.UUID]Clinic
	err     error
}

func newFakeRepo(cs ...Clinic) *fakeRepo {
	r := &fakeRepo{clinics: map[uuid.UUID]Clinic{}}
	for _, c := range cs {
		r.clinics[c.ID] = c
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, c *Clinic) error {
	if r.err != nil {
		return r.err
	}
	r.clinics[c.ID] = *c
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.clinics[id]
	if !ok {
		return nil, ErrClinicNotFound
	}
	return &c, nil
}

func (r *fakeRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]Clinic, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []Clinic
	for _, c := range r.clinics {
		if c.OwnerDoctorID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAll(context.Context) ([]Clinic, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []Clinic
	for _, c := range r.clinics {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) ListOwnedClinicIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	cs, err := r.ListByOwner(ctx, doctorID)
	var ids []uuid.UUID
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids, err
}

func TestLoad_DoctorSeesOwnedAdminSeesAll(t *testing.T) {
	d1 := &actor.Doctor{ID: uuid.New()}
	d2 := &actor.Doctor{ID: uuid.New()}
	repo := newFakeRepo(
		Clinic{ID: uuid.New(), OwnerDoctorID: d1.ID, Name: "A"},
		Clinic{ID: uuid.New(), OwnerDoctorID: d1.ID, Name: "B"},
		Clinic{ID: uuid.New(), OwnerDoctorID: d2.ID, Name: "C"},
	)
	svc := NewService(repo, zerolog.Nop())

	assert.Len(t, svc.Load(context.Background(), d1), 2)
	assert.Len(t, svc.Load(context.Background(), d2), 1)
	assert.Len(t, svc.Load(context.Background(), &actor.Admin{ID: uuid.New()}), 3)
	assert.Empty(t, svc.Load(context.Background(), nil))
}

func TestLoad_StorageErrorYieldsEmptyList(t *testing.T) {
	d := &actor.Doctor{ID: uuid.New()}
	repo := newFakeRepo(Clinic{ID: uuid.New(), OwnerDoctorID: d.ID})
	repo.err = errors.New("connection refused")
	svc := NewService(repo, zerolog.Nop())

	assert.Empty(t, svc.Load(context.Background(), d))

	scope, err := svc.LoadScope(context.Background(), d, All)
	require.NoError(t, err)
	assert.Empty(t, scope.Clinics())
}

func TestLoadScope_RejectsForeignClinic(t *testing.T) {
	d1 := &actor.Doctor{ID: uuid.New()}
	foreign := Clinic{ID: uuid.New(), OwnerDoctorID: uuid.New()}
	svc := NewService(newFakeRepo(Clinic{ID: uuid.New(), OwnerDoctorID: d1.ID}, foreign), zerolog.Nop())

	scope, err := svc.LoadScope(context.Background(), d1, foreign.ID.String())
	require.Error(t, err)
	assert.True(t, scope.IsAll())
}

func TestCreate_DoctorOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.Create(context.Background(), &actor.Admin{ID: uuid.New()}, &Clinic{Name: "X"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	d := &actor.Doctor{ID: uuid.New()}
	c, err := svc.Create(context.Background(), d, &Clinic{
		Name:           "  Downtown ",
		OperatingHours: map[string]Hours{"monday": {Open: "09:00", Close: "17:00"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Downtown", c.Name)
	assert.Equal(t, d.ID, c.OwnerDoctorID)
	assert.True(t, d.Owns(c.ID))
	assert.Contains(t, repo.clinics, c.ID)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newFakeRepo(), zerolog.Nop())
	d := &actor.Doctor{ID: uuid.New()}

	cases := map[string]*Clinic{
		"missing name": {Name: " "},
		"bad weekday":  {Name: "A", OperatingHours: map[string]Hours{"funday": {Open: "09:00", Close: "10:00"}}},
		"bad clock":    {Name: "A", OperatingHours: map[string]Hours{"monday": {Open: "9am", Close: "10:00"}}},
		"inverted":     {Name: "A", OperatingHours: map[string]Hours{"monday": {Open: "18:00", Close: "10:00"}}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), d, c)
			var verr *apperr.ValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
}

func TestCreate_StorageFailurePropagates(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("disk full")
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.Create(context.Background(), &actor.Doctor{ID: uuid.New()}, &Clinic{Name: "A"})
	assert.True(t, apperr.IsStorage(err))
}

func TestGet_ForeignClinicIsNotFound(t *testing.T) {
	owner := &actor.Doctor{ID: uuid.New()}
	other := &actor.Doctor{ID: uuid.New()}
	c := Clinic{ID: uuid.New(), OwnerDoctorID: owner.ID}
	owner.OwnedClinics = []uuid.UUID{c.ID}
	svc := NewService(newFakeRepo(c), zerolog.Nop())

	got, err := svc.Get(context.Background(), owner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = svc.Get(context.Background(), other, c.ID)
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = svc.Get(context.Background(), &actor.Admin{ID: uuid.New()}, c.ID)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), owner, uuid.New())
	assert.True(t, errors.As(err, &nf))
}

func TestCanActOn_RequiresResolvedOwnership(t *testing.T) {
	d := &actor.Doctor{ID: uuid.New()}
	c := &Clinic{ID: uuid.New(), OwnerDoctorID: d.ID}

	assert.False(t, CanActOn(d, c), "owned set not yet resolved")

	d.OwnedClinics = []uuid.UUID{c.ID}
	assert.True(t, CanActOn(d, c))

	stranger := &actor.Doctor{ID: uuid.New(), OwnedClinics: []uuid.UUID{c.ID}}
	assert.False(t, CanActOn(stranger, c), "owned set alone is not enough")

	assert.True(t, CanActOn(&actor.Admin{ID: uuid.New()}, c))
	assert.False(t, CanActOn(nil, c))
}

func TestGet_StaleOwnedSetIsNotFound(t *testing.T) {
	owner := &actor.Doctor{ID: uuid.New()}
	c := Clinic{ID: uuid.New(), OwnerDoctorID: owner.ID}
	svc := NewService(newFakeRepo(c), zerolog.Nop())

	_, err := svc.Get(context.Background(), owner, c.ID)
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}
