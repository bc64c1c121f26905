package app

import (
	"context"
	"fmt"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/demo"
)

type adminWriter interface {
	CreateAdmin(ctx context.Context, a *actor.Admin) error
}

// Seed writes a generated dataset through repos, parents first. The admin
// is skipped when the actor store cannot persist admins or the dataset
// has none.
func Seed(ctx context.Context, repos Repositories, ds demo.Dataset) error {
	if err := repos.Actors.CreateDoctor(ctx, &ds.Doctor); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	if admins, ok := repos.Actors.(adminWriter); ok && ds.Admin.UserID != "" {
		if err := admins.CreateAdmin(ctx, &ds.Admin); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
	}

	for i := range ds.Clinics {
		if err := repos.Clinics.Create(ctx, &ds.Clinics[i]); err != nil {
			return fmt.Errorf("create clinic %s: %w", ds.Clinics[i].Name, err)
		}
	}
	for i := range ds.Patients {
		if err := repos.Patients.Create(ctx, &ds.Patients[i]); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
	}
	for i := range ds.Appointments {
		if err := repos.Appointments.Insert(ctx, &ds.Appointments[i]); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
	}
	for i := range ds.Prescriptions {
		if err := repos.Prescriptions.Create(ctx, &ds.Prescriptions[i]); err != nil {
			return fmt.Errorf("create prescription: %w", err)
		}
	}
	for i := range ds.VoiceLogs {
		if err := repos.VoiceLogs.Create(ctx, &ds.VoiceLogs[i]); err != nil {
			return fmt.Errorf("create voice log: %w", err)
		}
	}
	return nil
}
