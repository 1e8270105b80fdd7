// Package notification composes booking messages and hands them to the
// external mail relay without blocking the caller.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNoRecipients = errors.New("message has no recipients")

// Address is a display name and mailbox pair.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%q <%s>", a.Name, a.Email)
}

// Attachment is a named binary part of a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a structured outbound email.
type Message struct {
	Kind        string
	From        Address
	To          []string
	Bcc         []string
	ReplyTo     string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return ErrNoRecipients
		}
	}
	if m.Subject == "" {
		return errors.New("message has no subject")
	}
	return nil
}

// SendResult carries the transport's correlation id.
type SendResult struct {
	MessageID string
}

// Mailer is the outbound mail relay.
type Mailer interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
}
