package voicelog_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/demo"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/voicelog"
)

type fixture struct {
	store  *demo.Store
	svc    *voicelog.Service
	doc    *actor.Doctor
	c1, c2 clinic.Clinic
	pt     patient.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := demo.NewStore()

	f := &fixture{store: store, doc: &actor.Doctor{ID: uuid.New(), Name: "Dr. V"}}
	f.c1 = clinic.Clinic{ID: uuid.New(), OwnerDoctorID: f.doc.ID, Name: "One"}
	f.c2 = clinic.Clinic{ID: uuid.New(), OwnerDoctorID: f.doc.ID, Name: "Two"}
	require.NoError(t, store.Clinics().Create(ctx, &f.c1))
	require.NoError(t, store.Clinics().Create(ctx, &f.c2))
	f.doc.OwnedClinics = []uuid.UUID{f.c1.ID, f.c2.ID}

	f.pt = patient.Patient{ID: uuid.New(), DoctorID: f.doc.ID, ClinicID: f.c2.ID, FirstName: "Vic", LastName: "Caller"}
	require.NoError(t, store.Patients().Create(ctx, &f.pt))

	f.svc = voicelog.NewService(store.VoiceLogs(), store.Patients(), zerolog.Nop())
	return f
}

func (f *fixture) call(callID string, patientID *uuid.UUID) *voicelog.Log {
	return &voicelog.Log{
		DoctorID:    f.doc.ID,
		PatientID:   patientID,
		CallID:      callID,
		PhoneNumber: "+15550199",
		CallType:    voicelog.CallInbound,
		Status:      voicelog.CallCompleted,
	}
}

func TestAppend_AttributesClinicFromPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.svc.Append(ctx, f.call("call-1", &f.pt.ID))
	require.NoError(t, err)
	assert.Equal(t, f.c2.ID, l.ClinicID)
	assert.NotNil(t, l.Actions)

	anon, err := f.svc.Append(ctx, f.call("call-2", nil))
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, anon.ClinicID)
}

func TestAppend_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var verr *apperr.ValidationError
	bad := f.call("", nil)
	_, err := f.svc.Append(ctx, bad)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "call_id", verr.Field)

	score := 1.5
	bad = f.call("c", nil)
	bad.ConfidenceScore = &score
	_, err = f.svc.Append(ctx, bad)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "confidence_score", verr.Field)

	bad = f.call("c", nil)
	bad.Status = "ringing"
	_, err = f.svc.Append(ctx, bad)
	require.True(t, errors.As(err, &verr))

	// another doctor's patient
	foreign := f.call("c", &f.pt.ID)
	foreign.DoctorID = uuid.New()
	_, err = f.svc.Append(ctx, foreign)
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = f.svc.Append(ctx, f.call("dup", nil))
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, f.call("dup", nil))
	assert.ErrorIs(t, err, voicelog.ErrDuplicateCall)
}

func TestList_UnattributedOnlyUnderAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Append(ctx, f.call("attributed", &f.pt.ID))
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, f.call("anonymous", nil))
	require.NoError(t, err)

	scope := clinic.NewScope([]clinic.Clinic{f.c1, f.c2})
	assert.Len(t, f.svc.List(ctx, f.doc, scope, voicelog.Filter{}), 2)

	two, err := scope.Narrow(f.c2.ID.String())
	require.NoError(t, err)
	got := f.svc.List(ctx, f.doc, two, voicelog.Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, "attributed", got[0].CallID)

	one, err := scope.Narrow(f.c1.ID.String())
	require.NoError(t, err)
	assert.Empty(t, f.svc.List(ctx, f.doc, one, voicelog.Filter{}))
}

func TestList_AdminNeedsViewLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Append(ctx, f.call("c1", nil))
	require.NoError(t, err)

	plain := &actor.Admin{ID: uuid.New(), Permissions: []actor.Permission{actor.PermViewAll}}
	assert.Empty(t, f.svc.List(ctx, plain, clinic.Scope{}, voicelog.Filter{}))
	_, err = f.svc.Get(ctx, plain, l.ID)
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))

	auditor := &actor.Admin{ID: uuid.New(), Permissions: []actor.Permission{actor.PermViewLogs}}
	assert.Len(t, f.svc.List(ctx, auditor, clinic.Scope{}, voicelog.Filter{}), 1)
	got, err := f.svc.Get(ctx, auditor, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
}

func TestList_FilterAndFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missed := f.call("m", nil)
	missed.Status = voicelog.CallMissed
	_, err := f.svc.Append(ctx, missed)
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, f.call("ok", nil))
	require.NoError(t, err)

	got := f.svc.List(ctx, f.doc, clinic.Scope{}, voicelog.Filter{Status: voicelog.CallMissed})
	require.Len(t, got, 1)
	assert.Equal(t, "m", got[0].CallID)

	f.store.FailWith(errors.New("db down"))
	assert.Empty(t, f.svc.List(ctx, f.doc, clinic.Scope{}, voicelog.Filter{}))
}

func TestIngestor_HandleMessage(t *testing.T) {
	f := newFixture(t)
	ing := voicelog.NewIngestor(f.svc, metrics.New(), zerolog.Nop())

	ev := voicelog.CallEvent{
		DoctorID:        f.doc.ID,
		PatientID:       &f.pt.ID,
		CallID:          "agent-77",
		PhoneNumber:     "+15550123",
		CallType:        voicelog.CallInbound,
		Status:          voicelog.CallCompleted,
		DurationSeconds: 95,
		OccurredAt:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, ing.HandleMessage("voice-agent/calls", payload))
	// redelivery is acknowledged without a second record
	require.NoError(t, ing.HandleMessage("voice-agent/calls", payload))

	logs := f.svc.List(context.Background(), f.doc, clinic.Scope{}, voicelog.Filter{})
	require.Len(t, logs, 1)
	assert.Equal(t, f.c2.ID, logs[0].ClinicID)
	assert.Equal(t, ev.OccurredAt, logs[0].CreatedAt)

	assert.Error(t, ing.HandleMessage("voice-agent/calls", []byte("{not json")))

	ev.CallID = "agent-78"
	ev.CallType = "carrier-pigeon"
	payload, _ = json.Marshal(ev)
	assert.Error(t, ing.HandleMessage("voice-agent/calls", payload))
}
