package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/expohall/expohall-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	MagicLinkIssued       = "auth.magiclink.issued"
	CompanyLoggedIn       = "auth.company.logged_in"
	EventCreated          = "event.created"
	SurveyResponseCreated = "survey.response.created"
	ReportCompleted       = "report.completed"
)

// Event payloads
type MagicLinkIssuedEvent struct {
	CompanyID int64     `json:"company_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	IssuedAt  time.Time `json:"issued_at"`
}

type CompanyLoggedInEvent struct {
	CompanyID int64     `json:"company_id"`
	Method    string    `json:"method"` // magic_link or password
	At        time.Time `json:"at"`
}

type EventCreatedEvent struct {
	EventID   int64     `json:"event_id"`
	CompanyID int64     `json:"company_id"`
	EventName string    `json:"event_name"`
	StartDate time.Time `json:"start_date"`
	CreatedAt time.Time `json:"created_at"`
}

type SurveyResponseCreatedEvent struct {
	SurveyID    int64     `json:"survey_id"`
	ResponseID  int64     `json:"response_id"`
	EventID     int64     `json:"event_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ReportCompletedEvent struct {
	CompanyID int64     `json:"company_id"`
	Sent      bool      `json:"sent"`
	At        time.Time `json:"at"`
}
