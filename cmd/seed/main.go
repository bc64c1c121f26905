package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/demo"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

func main() {
	opts := demo.DefaultOptions()
	var (
		seed    int64
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a generated doctor, clinics, patients and schedule into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Seed = uint64(seed)
			opts.Now = time.Now()
			return run(cmd.Context(), opts, migrate)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&seed, "seed", 42, "random seed; the same seed produces the same dataset")
	f.StringVar(&opts.DoctorSubject, "doctor-subject", opts.DoctorSubject, "identity provider subject of the seeded doctor")
	f.StringVar(&opts.DoctorEmail, "doctor-email", opts.DoctorEmail, "email of the seeded doctor")
	f.StringVar(&opts.AdminSubject, "admin-subject", opts.AdminSubject, "subject of the seeded admin, empty to skip")
	f.StringVar(&opts.AdminEmail, "admin-email", opts.AdminEmail, "email of the seeded admin")
	f.IntVar(&opts.Clinics, "clinics", opts.Clinics, "clinics owned by the doctor")
	f.IntVar(&opts.PatientsPerClinic, "patients", opts.PatientsPerClinic, "patients per clinic")
	f.IntVar(&opts.Days, "days", opts.Days, "days of schedule around today")
	f.IntVar(&opts.SlotsPerDay, "slots", opts.SlotsPerDay, "appointments per clinic per day")
	f.BoolVar(&migrate, "migrate", true, "apply pending migrations first")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts demo.Options, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	if cfg.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Uint64("seed", opts.Seed).Str("doctor", opts.DoctorSubject).Msg("seed starting")

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		n, err := db.NewMigrator(pool).Up(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int("applied", n).Msg("migrations applied")
	}

	return load(ctx, app.PostgresRepositories(pool), demo.Generate(opts), logger)
}

func load(ctx context.Context, repos app.Repositories, ds demo.Dataset, logger zerolog.Logger) error {
	if err := app.Seed(ctx, repos, ds); err != nil {
		return err
	}
	logger.Info().
		Str("doctor_id", ds.Doctor.ID.String()).
		Int("clinics", len(ds.Clinics)).
		Int("patients", len(ds.Patients)).
		Int("appointments", len(ds.Appointments)).
		Int("prescriptions", len(ds.Prescriptions)).
		Int("voice_logs", len(ds.VoiceLogs)).
		Msg("seed complete")
	return nil
}
