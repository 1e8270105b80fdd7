package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RelayRoutingKey is the topic the mail relay consumes.
const RelayRoutingKey = "mail.send"

// relayChannel is the part of *amqp.Channel the mailer publishes through.
type relayChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// relayDialer opens a channel with the exchange declared. The closer owns
// the underlying connection.
type relayDialer func() (relayChannel, io.Closer, error)

// RelayMailer publishes messages to the mail relay over AMQP. A channel lost
// to a broker restart is reopened on the next send.
type RelayMailer struct {
	mu       sync.Mutex
	dial     relayDialer
	conn     io.Closer
	ch       relayChannel
	exchange string
	now      func() time.Time
}

func NewRelayMailer(url, exchange string) (*RelayMailer, error) {
	return newRelayMailer(dialRelay(url, exchange), exchange)
}

func newRelayMailer(dial relayDialer, exchange string) (*RelayMailer, error) {
	m := &RelayMailer{dial: dial, exchange: exchange, now: time.Now}
	// Fail at startup when the broker is unreachable.
	if err := m.reconnect(); err != nil {
		return nil, err
	}
	return m, nil
}

func dialRelay(url, exchange string) relayDialer {
	return func() (relayChannel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial mail relay: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("declare exchange: %w", err)
		}
		return ch, conn, nil
	}
}

// reconnect replaces the channel and connection. Callers hold mu except
// during construction.
func (m *RelayMailer) reconnect() error {
	m.closeLocked()
	ch, conn, err := m.dial()
	if err != nil {
		return err
	}
	m.ch, m.conn = ch, conn
	return nil
}

type envelopeAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// envelope is the JSON body the relay expects.
type envelope struct {
	MessageID   string               `json:"message_id"`
	Kind        string               `json:"kind,omitempty"`
	From        Address              `json:"from"`
	To          []string             `json:"to"`
	Bcc         []string             `json:"bcc,omitempty"`
	ReplyTo     string               `json:"reply_to,omitempty"`
	Subject     string               `json:"subject"`
	HTML        string               `json:"html,omitempty"`
	Text        string               `json:"text,omitempty"`
	Attachments []envelopeAttachment `json:"attachments,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

func newEnvelope(msg Message, id string, now time.Time) envelope {
	env := envelope{
		MessageID: id,
		Kind:      msg.Kind,
		From:      msg.From,
		To:        msg.To,
		Bcc:       msg.Bcc,
		ReplyTo:   msg.ReplyTo,
		Subject:   msg.Subject,
		HTML:      msg.HTML,
		Text:      msg.Text,
		CreatedAt: now.UTC(),
	}
	for _, a := range msg.Attachments {
		env.Attachments = append(env.Attachments, envelopeAttachment(a))
	}
	return env
}

func (m *RelayMailer) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := msg.Validate(); err != nil {
		return SendResult{}, err
	}

	id := uuid.NewString()
	now := m.now()
	body, err := json.Marshal(newEnvelope(msg, id, now))
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal mail envelope: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     id,
		CorrelationId: id,
		Timestamp:     now,
		Type:          msg.Kind,
		Body:          body,
	}

	if m.ch == nil || m.ch.IsClosed() {
		if err := m.reconnect(); err != nil {
			return SendResult{}, fmt.Errorf("reconnect mail relay: %w", err)
		}
	}
	err = m.ch.PublishWithContext(ctx, m.exchange, RelayRoutingKey, false, false, pub)
	if errors.Is(err, amqp.ErrClosed) {
		// Closed between the check and the publish; one fresh attempt.
		if err := m.reconnect(); err != nil {
			return SendResult{}, fmt.Errorf("reconnect mail relay: %w", err)
		}
		err = m.ch.PublishWithContext(ctx, m.exchange, RelayRoutingKey, false, false, pub)
	}
	if err != nil {
		return SendResult{}, fmt.Errorf("publish mail: %w", err)
	}
	return SendResult{MessageID: id}, nil
}

func (m *RelayMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *RelayMailer) closeLocked() error {
	var err error
	if m.ch != nil {
		_ = m.ch.Close()
		m.ch = nil
	}
	if m.conn != nil {
		err = m.conn.Close()
		m.conn = nil
	}
	return err
}
