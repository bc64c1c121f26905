package voicelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/metrics"
)

// CallEvent is the JSON payload the voice agent publishes per finished call.
type CallEvent struct {
	DoctorID        uuid.UUID  `json:"doctor_id"`
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
	CallID          string     `json:"call_id"`
	PhoneNumber     string     `json:"phone_number"`
	CallType        CallType   `json:"call_type"`
	Status          CallStatus `json:"status"`
	DurationSeconds int        `json:"duration_seconds"`
	Transcript      *string    `json:"transcript,omitempty"`
	ConfidenceScore *float64   `json:"confidence_score,omitempty"`
	Actions         []Action   `json:"actions,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

func (e CallEvent) toLog() *Log {
	return &Log{
		DoctorID:        e.DoctorID,
		PatientID:       e.PatientID,
		CallID:          e.CallID,
		PhoneNumber:     e.PhoneNumber,
		CallType:        e.CallType,
		Status:          e.Status,
		DurationSeconds: e.DurationSeconds,
		Transcript:      e.Transcript,
		ConfidenceScore: e.ConfidenceScore,
		Actions:         e.Actions,
		CreatedAt:       e.OccurredAt,
	}
}

// Ingestor turns broker messages into appended logs.
type Ingestor struct {
	svc     *Service
	metrics *metrics.Collector
	logger  zerolog.Logger
	timeout time.Duration
}

func NewIngestor(svc *Service, m *metrics.Collector, logger zerolog.Logger) *Ingestor {
	return &Ingestor{svc: svc, metrics: m, logger: logger, timeout: 5 * time.Second}
}

// HandleMessage has the shape of an mqtt message handler. Redelivered calls
// are acknowledged without a second record.
func (i *Ingestor) HandleMessage(topic string, payload []byte) error {
	var ev CallEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		i.metrics.RecordVoiceEvent("malformed")
		return fmt.Errorf("decode call event from %s: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	l, err := i.svc.Append(ctx, ev.toLog())
	switch {
	case errors.Is(err, ErrDuplicateCall):
		i.metrics.RecordVoiceEvent("duplicate")
		i.logger.Debug().Str("call_id", ev.CallID).Msg("duplicate call event ignored")
		return nil
	case err != nil:
		i.metrics.RecordVoiceEvent("rejected")
		return fmt.Errorf("append call %s: %w", ev.CallID, err)
	}

	i.metrics.RecordVoiceEvent("recorded")
	i.logger.Info().
		Str("call_id", l.CallID).
		Str("doctor_id", l.DoctorID.String()).
		Str("status", string(l.Status)).
		Msg("voice call recorded")
	return nil
}
