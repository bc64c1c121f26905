// Package notify delivers prescriptions through an outbound messaging
// gateway (email and SMS).
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

// Message is the gateway request body.
type Message struct {
	Channel   string `json:"channel"`
	To        string `json:"to"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
	Reference string `json:"reference"`
}

type gatewayResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Gateway posts messages to NOTIFY_BASE_URL. A delivery is attempted once.
type Gateway struct {
	httpClient *resty.Client
	logger     zerolog.Logger
}

func NewGateway(baseURL, apiKey string, logger zerolog.Logger) *Gateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &Gateway{httpClient: client, logger: logger}
}

func (g *Gateway) SendPrescription(ctx context.Context, d prescription.Delivery) error {
	msg := Render(d)

	var result gatewayResponse
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&result).
		SetError(&result).
		Post("/v1/messages")
	if err != nil {
		return fmt.Errorf("call messaging gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("messaging gateway returned %d: %s", resp.StatusCode(), result.Error)
	}

	g.logger.Debug().
		Str("message_id", result.ID).
		Str("channel", msg.Channel).
		Str("reference", msg.Reference).
		Msg("message accepted by gateway")
	return nil
}

// Render formats a prescription as a plain-text message.
func Render(d prescription.Delivery) Message {
	p := d.Prescription

	var b strings.Builder
	fmt.Fprintf(&b, "Prescription for %s\n", d.PatientName)
	for _, m := range p.Medications {
		line := m.Name + " " + m.Dosage
		if m.Frequency != "" {
			line += ", " + m.Frequency
		}
		if m.Duration != "" {
			line += " for " + m.Duration
		}
		fmt.Fprintf(&b, "- %s\n", line)
	}
	if p.Instructions != "" {
		fmt.Fprintf(&b, "Instructions: %s\n", p.Instructions)
	}
	if p.FollowUp != "" {
		fmt.Fprintf(&b, "Follow-up: %s\n", p.FollowUp)
	}
	fmt.Fprintf(&b, "Signed by %s on %s", p.SignedBy, p.SignedAt.Format("2006-01-02"))

	msg := Message{
		Channel:   string(d.Channel),
		To:        d.Recipient,
		Body:      b.String(),
		Reference: p.ID.String(),
	}
	if d.Channel == prescription.ChannelEmail {
		msg.Subject = "Your prescription"
	}
	return msg
}

// LogNotifier records deliveries in the log only. Used when no gateway is
// configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPrescription(_ context.Context, d prescription.Delivery) error {
	n.logger.Info().
		Str("channel", string(d.Channel)).
		Str("prescription_id", d.Prescription.ID.String()).
		Msg("prescription delivery skipped, no gateway configured")
	return nil
}
