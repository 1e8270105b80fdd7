// Package notificationtest provides a recording mail transport for tests.
package notificationtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/notification"
)

// Recorder is a Mailer that keeps every message it is given.
// Set Err to make every send fail after recording.
type Recorder struct {
	mu       sync.Mutex
	messages []notification.Message
	Err      error
}

func (r *Recorder) Send(_ context.Context, msg notification.Message) (notification.SendResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)
	if r.Err != nil {
		return notification.SendResult{}, r.Err
	}
	return notification.SendResult{MessageID: fmt.Sprintf("rec-%d", len(r.messages))}, nil
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []notification.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Message(nil), r.messages...)
}

// To returns the messages addressed to email.
func (r *Recorder) To(email string) []notification.Message {
	var out []notification.Message
	for _, m := range r.Messages() {
		for _, to := range m.To {
			if to == email {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Kind returns the messages of the given kind.
func (r *Recorder) Kind(kind string) []notification.Message {
	var out []notification.Message
	for _, m := range r.Messages() {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}
