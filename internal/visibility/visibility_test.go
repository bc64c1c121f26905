package visibility

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
)

type row struct {
	id       int
	doctorID uuid.UUID
	clinicID uuid.UUID
}

func (r row) OwnerID() uuid.UUID   { return r.doctorID }
func (r row) ClinicRef() uuid.UUID { return r.clinicID }

type fixture struct {
	doctor, other *actor.Doctor
	c1, c2, c3    clinic.Clinic
	rows          []row
}

func newFixture() fixture {
	f := fixture{
		doctor: &actor.Doctor{ID: uuid.New()},
		other:  &actor.Doctor{ID: uuid.New()},
	}
	f.c1 = clinic.Clinic{ID: uuid.New(), OwnerDoctorID: f.doctor.ID}
	f.c2 = clinic.Clinic{ID: uuid.New(), OwnerDoctorID: f.doctor.ID}
	f.c3 = clinic.Clinic{ID: uuid.New(), OwnerDoctorID: f.other.ID}

	f.rows = []row{
		{1, f.doctor.ID, f.c1.ID},
		{2, f.doctor.ID, f.c1.ID},
		{3, f.doctor.ID, f.c2.ID},
		{4, f.other.ID, f.c3.ID},
		{5, f.other.ID, f.c1.ID},
		{6, f.doctor.ID, uuid.Nil},
	}
	return f
}

func ids(rows []row) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.id)
	}
	return out
}

func scoped(t *testing.T, cs []clinic.Clinic, sel string) clinic.Scope {
	t.Helper()
	s := clinic.NewScope(cs)
	require.NoError(t, s.Select(sel))
	return s
}

func TestDoctor_SeesOnlyOwnRows(t *testing.T) {
	f := newFixture()
	s := scoped(t, []clinic.Clinic{f.c1, f.c2}, clinic.All)

	assert.Equal(t, []int{1, 2, 3, 6}, ids(Filter(f.doctor, s, f.rows)))
	assert.Equal(t, []int{4, 5}, ids(Filter(f.other, clinic.NewScope([]clinic.Clinic{f.c3}), f.rows)))
}

func TestDoctor_NarrowedByScope(t *testing.T) {
	f := newFixture()
	cs := []clinic.Clinic{f.c1, f.c2}

	assert.Equal(t, []int{1, 2}, ids(Filter(f.doctor, scoped(t, cs, f.c1.ID.String()), f.rows)))
	assert.Equal(t, []int{3}, ids(Filter(f.doctor, scoped(t, cs, f.c2.ID.String()), f.rows)))
}

func TestAllIsUnionOfPerClinicViews(t *testing.T) {
	f := newFixture()
	cs := []clinic.Clinic{f.c1, f.c2}
	attributed := f.rows[:5]

	all := ids(Filter(f.doctor, scoped(t, cs, clinic.All), attributed))

	var union []int
	for _, c := range cs {
		union = append(union, ids(Filter(f.doctor, scoped(t, cs, c.ID.String()), attributed))...)
	}

	assert.ElementsMatch(t, all, union)
}

func TestAdmin_SeesEverythingUnlessItSelects(t *testing.T) {
	f := newFixture()
	admin := &actor.Admin{ID: uuid.New()}
	cs := []clinic.Clinic{f.c1, f.c2, f.c3}

	assert.Len(t, Filter(admin, scoped(t, cs, clinic.All), f.rows), len(f.rows))
	assert.Equal(t, []int{1, 2, 5}, ids(Filter(admin, scoped(t, cs, f.c1.ID.String()), f.rows)))
}

func TestUnresolvedActorSeesNothing(t *testing.T) {
	f := newFixture()
	var nilDoctor *actor.Doctor

	assert.Empty(t, Filter(nil, clinic.NewScope(nil), f.rows))
	assert.Empty(t, Filter(nilDoctor, clinic.NewScope(nil), f.rows))
	assert.False(t, Visible(nil, clinic.NewScope(nil), f.rows[0]))
	assert.True(t, CriteriaFor(nil, clinic.NewScope(nil)).Deny)
}

func TestWhere(t *testing.T) {
	f := newFixture()

	clause, args := CriteriaFor(&actor.Admin{}, clinic.NewScope(nil)).Where(1)
	assert.Equal(t, "TRUE", clause)
	assert.Empty(t, args)

	clause, args = CriteriaFor(f.doctor, scoped(t, []clinic.Clinic{f.c1}, f.c1.ID.String())).Where(3)
	assert.Equal(t, "doctor_id = $3 AND clinic_id = $4", clause)
	assert.Equal(t, []any{f.doctor.ID, f.c1.ID}, args)
}

func TestCanSee_IgnoresSelection(t *testing.T) {
	f := newFixture()

	assert.True(t, CanSee(f.doctor, f.rows[2]))
	assert.False(t, CanSee(f.doctor, f.rows[3]))
	assert.True(t, CanSee(&actor.Admin{ID: uuid.New()}, f.rows[3]))
	assert.False(t, CanSee(nil, f.rows[0]))
}
