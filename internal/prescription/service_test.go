package prescription_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

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
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []prescription.Delivery
	err  error
}

func (n *recordingNotifier) SendPrescription(_ context.Context, d prescription.Delivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, d)
	return nil
}

type fixture struct {
	store    *demo.Store
	svc      *prescription.Service
	notifier *recordingNotifier
	metrics  *metrics.Collector
	doc      *actor.Doctor
	other    *actor.Doctor
	c        clinic.Clinic
	pt       patient.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := demo.NewStore()

	f := &fixture{
		store:    store,
		notifier: &recordingNotifier{},
		metrics:  metrics.New(),
		doc:      &actor.Doctor{ID: uuid.New(), Name: "Dr. House", EmailAddr: "house@clinic.test"},
		other:    &actor.Doctor{ID: uuid.New(), Name: "Dr. Other"},
	}
	f.c = clinic.Clinic{ID: uuid.New(), OwnerDoctorID: f.doc.ID, Name: "Main"}
	require.NoError(t, store.Clinics().Create(ctx, &f.c))
	f.doc.OwnedClinics = []uuid.UUID{f.c.ID}

	f.pt = patient.Patient{
		ID: uuid.New(), DoctorID: f.doc.ID, ClinicID: f.c.ID,
		FirstName: "Greg", LastName: "Patient",
		Email: "greg@example.com", Phone: "+15550101",
	}
	require.NoError(t, store.Patients().Create(ctx, &f.pt))

	f.svc = prescription.NewService(store.Prescriptions(), store.Patients(), f.notifier, f.metrics, zerolog.Nop())
	return f
}

func (f *fixture) prescribe(t *testing.T) *prescription.Prescription {
	t.Helper()
	p, err := f.svc.Create(context.Background(), f.doc, &prescription.Prescription{
		PatientID:   f.pt.ID,
		Medications: []prescription.Medication{{Name: " Amoxicillin ", Dosage: "500mg"}},
	})
	require.NoError(t, err)
	return p
}

func TestCreate_SignsWithDoctorAndPatientClinic(t *testing.T) {
	f := newFixture(t)
	p := f.prescribe(t)

	assert.Equal(t, f.doc.ID, p.DoctorID)
	assert.Equal(t, f.c.ID, p.ClinicID)
	assert.Equal(t, "Dr. House", p.SignedBy)
	assert.Equal(t, "Amoxicillin", p.Medications[0].Name)
	assert.False(t, p.SignedAt.IsZero())
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, &actor.Admin{ID: uuid.New()}, &prescription.Prescription{PatientID: f.pt.ID})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	var nf *apperr.NotFoundError
	_, err = f.svc.Create(ctx, f.other, &prescription.Prescription{
		PatientID: f.pt.ID, Medications: []prescription.Medication{{Name: "X", Dosage: "1"}},
	})
	assert.True(t, errors.As(err, &nf))

	var verr *apperr.ValidationError
	_, err = f.svc.Create(ctx, f.doc, &prescription.Prescription{PatientID: f.pt.ID})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "medications", verr.Field)

	_, err = f.svc.Create(ctx, f.doc, &prescription.Prescription{
		PatientID: f.pt.ID, Medications: []prescription.Medication{{Name: "X"}},
	})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "medications[0].dosage", verr.Field)

	_, err = f.svc.Create(ctx, f.doc, &prescription.Prescription{})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "patient_id", verr.Field)
}

func TestListAndGet_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prescribe(t)

	scope := clinic.NewScope([]clinic.Clinic{f.c})
	assert.Len(t, f.svc.List(ctx, f.doc, scope, prescription.Filter{}), 1)
	assert.Empty(t, f.svc.List(ctx, f.other, clinic.Scope{}, prescription.Filter{}))
	assert.Len(t, f.svc.List(ctx, f.doc, scope, prescription.Filter{PatientID: f.pt.ID}), 1)
	assert.Empty(t, f.svc.List(ctx, f.doc, scope, prescription.Filter{PatientID: uuid.New()}))

	_, err := f.svc.Get(ctx, f.other, p.ID)
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))

	f.store.FailWith(errors.New("db down"))
	assert.Empty(t, f.svc.List(ctx, f.doc, scope, prescription.Filter{}))
	_, err = f.svc.Get(ctx, f.doc, p.ID)
	assert.True(t, apperr.IsStorage(err))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prescribe(t)

	assert.Error(t, f.svc.Delete(ctx, f.other, p.ID))
	require.NoError(t, f.svc.Delete(ctx, f.doc, p.ID))

	_, err := f.svc.Get(ctx, f.doc, p.ID)
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestSend_Email(t *testing.T) {
	f := newFixture(t)
	p := f.prescribe(t)

	d, err := f.svc.Send(context.Background(), f.doc, p.ID, prescription.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, "greg@example.com", d.Recipient)
	assert.Equal(t, "Greg Patient", d.PatientName)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, p.ID, f.notifier.sent[0].Prescription.ID)
}

func TestSend_SMSRequiresConsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prescribe(t)

	_, err := f.svc.Send(ctx, f.doc, p.ID, prescription.ChannelSMS)
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, f.notifier.sent)

	f.pt.Consent.Messaging = true
	require.NoError(t, f.store.Patients().Update(ctx, &f.pt))

	d, err := f.svc.Send(ctx, f.doc, p.ID, prescription.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, "+15550101", d.Recipient)
}

func TestSend_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prescribe(t)

	var verr *apperr.ValidationError
	_, err := f.svc.Send(ctx, f.doc, p.ID, "fax")
	assert.True(t, errors.As(err, &verr))

	f.pt.Email = ""
	require.NoError(t, f.store.Patients().Update(ctx, &f.pt))
	_, err = f.svc.Send(ctx, f.doc, p.ID, prescription.ChannelEmail)
	assert.True(t, errors.As(err, &verr))
}

func TestSend_NotifierFailureIsReportedOnce(t *testing.T) {
	f := newFixture(t)
	p := f.prescribe(t)
	f.notifier.err = errors.New("gateway timeout")

	_, err := f.svc.Send(context.Background(), f.doc, p.ID, prescription.ChannelEmail)
	require.ErrorIs(t, err, prescription.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "gateway timeout")

	rec := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `prescription_notifications_total{channel="email",success="false"} 1`))
}
