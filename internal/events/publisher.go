// Package events publishes lead lifecycle events for the notification worker.
package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mkhedmin/mkhedmin-api/internal/models"
)

const (
	SubjectLeadCreated               = "lead.created"
	SubjectLeadVerificationRequested = "lead.verification_requested"
)

type LeadPublisher interface {
	PublishLeadCreated(lead *models.Lead) error
	PublishVerificationRequested(lead *models.Lead, token string) error
}

type LeadCreatedEvent struct {
	EventType    string             `json:"event_type"`
	LeadID       uuid.UUID          `json:"lead_id"`
	FreelancerID uuid.UUID          `json:"freelancer_id"`
	Channel      models.LeadChannel `json:"channel"`
	Name         string             `json:"name"`
	Urgency      models.Urgency     `json:"urgency"`
	IsVerified   bool               `json:"is_verified"`
	CreatedAt    time.Time          `json:"created_at"`
}

// VerificationRequestedEvent carries the one-time token to the mailer.
type VerificationRequestedEvent struct {
	EventType string    `json:"event_type"`
	LeadID    uuid.UUID `json:"lead_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
}

type NatsPublisher struct {
	conn conn
	log  *slog.Logger
}

func NewNatsPublisher(natsURL string, log *slog.Logger) (*NatsPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(natsURL, nats.Name("mkhedmin-api"))
	if err != nil {
		return nil, nil, err
	}
	return &NatsPublisher{conn: nc, log: log}, nc, nil
}

func (p *NatsPublisher) PublishLeadCreated(lead *models.Lead) error {
	return p.publish(SubjectLeadCreated, LeadCreatedEvent{
		EventType:    SubjectLeadCreated,
		LeadID:       lead.ID,
		FreelancerID: lead.FreelancerID,
		Channel:      lead.Channel,
		Name:         lead.Name,
		Urgency:      lead.Urgency,
		IsVerified:   lead.IsVerified,
		CreatedAt:    lead.CreatedAt,
	})
}

func (p *NatsPublisher) PublishVerificationRequested(lead *models.Lead, token string) error {
	ev := VerificationRequestedEvent{
		EventType: SubjectLeadVerificationRequested,
		LeadID:    lead.ID,
		Email:     lead.Email,
		Name:      lead.Name,
		Token:     token,
	}
	if lead.VerificationExpires != nil {
		ev.ExpiresAt = *lead.VerificationExpires
	}
	return p.publish(SubjectLeadVerificationRequested, ev)
}

func (p *NatsPublisher) publish(subject string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.log.Error("nats publish failed", "subject", subject, "err", err)
		return err
	}
	p.log.Debug("event published", "subject", subject)
	return nil
}

// Noop drops every event. It stands in when NATS_URL is not configured.
type Noop struct{}

func (Noop) PublishLeadCreated(*models.Lead) error                   { return nil }
func (Noop) PublishVerificationRequested(*models.Lead, string) error { return nil }
