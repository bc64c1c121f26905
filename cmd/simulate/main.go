package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/mqtt"
	"github.com/hackgods/clinic-scheduling/internal/voicelog"
)

type SimConfig struct {
	APIBaseURL      string
	Duration        time.Duration
	Workers         int
	BookingRatio    float64
	RescheduleRatio float64
	CancelRatio     float64
	ReadRatio       float64
	CallRatio       float64
	SlotCount       int
	DayOffset       int
	Subject         string
	Email           string
	JWTSecret       string
	MQTTBrokerURL   string
	MQTTTopic       string
}

// DataPool holds what the workers pick from: the doctor's clinics and
// patients, and the appointments booked so far.
type DataPool struct {
	DoctorID uuid.UUID
	Clinics  []uuid.UUID
	Patients map[uuid.UUID][]uuid.UUID // clinic -> patients
	Starts   []time.Time

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking    OperationMetrics
	Reschedule OperationMetrics
	Cancel     OperationMetrics
	List       OperationMetrics
	Call       OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *resty.Client
	broker  *mqtt.Client
	metrics Metrics
	logger  zerolog.Logger
}

func main() {
	base, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(base.Env, base.LogLevel)

	cfg := loadConfig(base)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid simulator config")
	}
	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Int("slots", cfg.SlotCount).
		Msg("simulator starting")

	token, err := auth.NewIssuer(cfg.JWTSecret, cfg.Duration+10*time.Minute).
		Issue(actor.Identity{Subject: cfg.Subject, Email: cfg.Email, Name: "Simulator"})
	if err != nil {
		logger.Fatal().Err(err).Msg("issue token")
	}

	client := resty.New().
		SetBaseURL(cfg.APIBaseURL).
		SetTimeout(10*time.Second).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dataPool, err := loadDataPool(ctx, client, cfg)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().Int("clinics", len(dataPool.Clinics)).Int("candidate_starts", len(dataPool.Starts)).Msg("data pool loaded")

	sim := &Simulator{config: cfg, pool: dataPool, client: client, logger: logger}

	if cfg.MQTTBrokerURL != "" {
		broker, err := mqtt.NewClient(mqtt.Config{Broker: cfg.MQTTBrokerURL, ClientID: "clinic-simulator-" + uuid.NewString()[:8]}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("mqtt connection")
		}
		defer broker.Disconnect()
		sim.broker = broker
	}

	sim.Run()
	sim.PrintReport()

	violations, err := sim.VerifyNoOverlaps(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("verification failed")
	}
	if violations > 0 {
		logger.Error().Int("violations", violations).Msg("overlapping booked appointments found")
		os.Exit(1)
	}
	logger.Info().Msg("no overlapping booked appointments")
}

func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:      getEnv("SIM_API_BASE_URL", "http://localhost:"+base.HTTPPort),
		Duration:        getDuration("SIM_DURATION", 30*time.Second),
		Workers:         getInt("SIM_WORKERS", 10),
		BookingRatio:    getFloat("SIM_BOOKING_RATIO", 0.5),
		RescheduleRatio: getFloat("SIM_RESCHEDULE_RATIO", 0.15),
		CancelRatio:     getFloat("SIM_CANCEL_RATIO", 0.05),
		ReadRatio:       getFloat("SIM_READ_RATIO", 0.25),
		CallRatio:       getFloat("SIM_CALL_RATIO", 0.05),
		SlotCount:       getInt("SIM_SLOTS", 32),
		DayOffset:       getInt("SIM_DAY_OFFSET", 30),
		Subject:         getEnv("SIM_SUBJECT", "demo-doctor"),
		Email:           getEnv("SIM_EMAIL", "doctor@demo.clinic"),
		JWTSecret:       base.JWTSecret,
		MQTTBrokerURL:   base.MQTTBrokerURL,
		MQTTTopic:       base.MQTTTopic,
	}
	if cfg.MQTTBrokerURL == "" {
		cfg.CallRatio = 0
	}

	total := cfg.BookingRatio + cfg.RescheduleRatio + cfg.CancelRatio + cfg.ReadRatio + cfg.CallRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.RescheduleRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
		cfg.CallRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return errors.New("SIM_DURATION must be > 0")
	}
	if cfg.SlotCount <= 0 {
		return errors.New("SIM_SLOTS must be > 0")
	}
	return nil
}

type meResponse struct {
	ID      uuid.UUID `json:"id"`
	Clinics []struct {
		ID uuid.UUID `json:"id"`
	} `json:"clinics"`
}

type patientList struct {
	Items []struct {
		ID       uuid.UUID `json:"id"`
		ClinicID uuid.UUID `json:"clinic_id"`
	} `json:"items"`
}

func loadDataPool(ctx context.Context, client *resty.Client, cfg SimConfig) (*DataPool, error) {
	var me meResponse
	resp, err := client.R().SetContext(ctx).SetResult(&me).Get("/me")
	if err != nil {
		return nil, fmt.Errorf("get /me: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get /me: status %d: %s", resp.StatusCode(), resp.String())
	}

	var patients patientList
	resp, err = client.R().SetContext(ctx).SetResult(&patients).SetQueryParam("limit", "200").Get("/patients")
	if err != nil {
		return nil, fmt.Errorf("get /patients: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get /patients: status %d", resp.StatusCode())
	}

	dp := &DataPool{DoctorID: me.ID, Patients: make(map[uuid.UUID][]uuid.UUID)}
	for _, p := range patients.Items {
		dp.Patients[p.ClinicID] = append(dp.Patients[p.ClinicID], p.ID)
	}
	for _, c := range me.Clinics {
		if len(dp.Patients[c.ID]) > 0 {
			dp.Clinics = append(dp.Clinics, c.ID)
		}
	}
	if len(dp.Clinics) == 0 {
		return nil, errors.New("no clinic with patients; run cmd/seed first")
	}

	// A dense 15 minute grid on one far-off day so bookings collide.
	day := time.Now().AddDate(0, 0, cfg.DayOffset)
	first := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.Local)
	for i := 0; i < cfg.SlotCount; i++ {
		dp.Starts = append(dp.Starts, first.Add(time.Duration(i)*15*time.Minute))
	}
	return dp, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	seed := time.Now().UnixNano() + int64(workerID)
	rng := rand.New(rand.NewSource(seed))
	faker := gofakeit.New(uint64(seed))
	c := s.config

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rng.Float64()
		switch {
		case r < c.BookingRatio:
			s.doBooking(ctx, rng)
		case r < c.BookingRatio+c.RescheduleRatio:
			s.doReschedule(ctx, rng)
		case r < c.BookingRatio+c.RescheduleRatio+c.CancelRatio:
			s.doCancel(ctx, rng)
		case r < c.BookingRatio+c.RescheduleRatio+c.CancelRatio+c.ReadRatio:
			s.doList(ctx, rng)
		default:
			s.doCall(rng, faker)
		}
	}
}

func (s *Simulator) pickSlot(rng *rand.Rand) (time.Time, time.Time) {
	start := s.pool.Starts[rng.Intn(len(s.pool.Starts))]
	return start, start.Add(time.Duration(1+rng.Intn(3)) * 15 * time.Minute)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	clinicID := s.pool.Clinics[rng.Intn(len(s.pool.Clinics))]
	patients := s.pool.Patients[clinicID]
	start, end := s.pickSlot(rng)

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	began := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"clinic_id":  clinicID,
			"patient_id": patients[rng.Intn(len(patients))],
			"start_time": start,
			"end_time":   end,
			"channel":    "web",
		}).
		SetResult(&created).
		Post("/appointments")
	latency := time.Since(began)

	success, conflict := classify(resp, err, http.StatusCreated)
	if success && created.ID != uuid.Nil {
		s.pool.AddAppointment(created.ID)
	}
	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doReschedule(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	start, end := s.pickSlot(rng)

	began := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"start_time": start, "end_time": end}).
		Patch("/appointments/" + id.String() + "/schedule")
	success, conflict := classify(resp, err, http.StatusOK)
	s.metrics.Reschedule.Record(time.Since(began), success, conflict)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	began := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"status": "cancelled"}).
		Post("/appointments/" + id.String() + "/status")
	success, conflict := classify(resp, err, http.StatusOK)
	s.metrics.Cancel.Record(time.Since(began), success, conflict)
}

func (s *Simulator) doList(ctx context.Context, rng *rand.Rand) {
	clinicID := s.pool.Clinics[rng.Intn(len(s.pool.Clinics))]

	began := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"clinic_id": clinicID.String(), "status": "booked", "limit": "50"}).
		Get("/appointments")
	success, _ := classify(resp, err, http.StatusOK)
	s.metrics.List.Record(time.Since(began), success, false)
}

func (s *Simulator) doCall(rng *rand.Rand, faker *gofakeit.Faker) {
	if s.broker == nil {
		return
	}
	clinicID := s.pool.Clinics[rng.Intn(len(s.pool.Clinics))]
	patients := s.pool.Patients[clinicID]
	patientID := patients[rng.Intn(len(patients))]

	ev := voicelog.CallEvent{
		DoctorID:        s.pool.DoctorID,
		PatientID:       &patientID,
		CallID:          "sim-" + uuid.NewString(),
		PhoneNumber:     faker.Phone(),
		CallType:        voicelog.CallInbound,
		Status:          voicelog.CallCompleted,
		DurationSeconds: faker.Number(30, 330),
		OccurredAt:      time.Now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.metrics.Call.Record(0, false, false)
		return
	}

	began := time.Now()
	err = s.broker.Publish(s.config.MQTTTopic, 1, false, payload)
	s.metrics.Call.Record(time.Since(began), err == nil, false)
}

// classify reports whether resp has the wanted status, or else whether it
// was a 409 the API is expected to return under contention.
func classify(resp *resty.Response, err error, want int) (success, conflict bool) {
	if err != nil || resp == nil {
		return false, false
	}
	return resp.StatusCode() == want, resp.StatusCode() == http.StatusConflict
}

// VerifyNoOverlaps lists every booked appointment on the simulated day per
// clinic and counts pairs that intersect.
func (s *Simulator) VerifyNoOverlaps(ctx context.Context) (int, error) {
	from := s.pool.Starts[0]
	to := s.pool.Starts[len(s.pool.Starts)-1].Add(time.Hour)

	violations := 0
	for _, clinicID := range s.pool.Clinics {
		var booked []appointment.Appointment
		for offset := 0; ; offset += 500 {
			var page struct {
				Items []appointment.Appointment `json:"items"`
			}
			resp, err := s.client.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"clinic_id": clinicID.String(),
					"status":    "booked",
					"from":      from.Format(time.RFC3339),
					"to":        to.Format(time.RFC3339),
					"limit":     "500",
					"offset":    strconv.Itoa(offset),
				}).
				SetResult(&page).
				Get("/appointments")
			if err != nil {
				return 0, fmt.Errorf("list appointments: %w", err)
			}
			if resp.StatusCode() != http.StatusOK {
				return 0, fmt.Errorf("list appointments: status %d", resp.StatusCode())
			}
			booked = append(booked, page.Items...)
			if len(page.Items) < 500 {
				break
			}
		}

		sort.Slice(booked, func(i, j int) bool { return booked[i].StartTime.Before(booked[j].StartTime) })
		for i := 1; i < len(booked); i++ {
			prev, cur := booked[i-1], booked[i]
			if appointment.Overlaps(prev.StartTime, prev.EndTime, cur.StartTime, cur.EndTime) {
				violations++
				s.logger.Error().
					Str("clinic_id", clinicID.String()).
					Str("first", prev.ID.String()).
					Str("second", cur.ID.String()).
					Msg("overlap")
			}
		}
		s.logger.Info().Str("clinic_id", clinicID.String()).Int("booked", len(booked)).Msg("clinic verified")
	}
	return violations, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Reschedule", &s.metrics.Reschedule)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("List", &s.metrics.List)
	printOperationReport("Voice call publish", &s.metrics.Call)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
