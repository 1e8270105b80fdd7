package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/logging"
)

const DefaultDispatchTimeout = 30 * time.Second

// Dispatcher sends messages in the background. Delivery failures are logged
// and never reach the caller. There is no retry.
type Dispatcher struct {
	mailer  Mailer
	timeout time.Duration
	logger  *slog.Logger

	// mu orders wg.Add against Close so no send starts once draining begins.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(mailer Mailer, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{mailer: mailer, timeout: timeout, logger: logger}
}

// Dispatch starts delivery and returns immediately. The send runs on a
// context detached from ctx, so it survives the end of the request.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	logger := logging.Component(ctx, d.logger, "dispatcher", msg.Kind)
	sendCtx := logging.ContextWithLogger(context.WithoutCancel(ctx), logger)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		logger.Error("mail dispatch dropped, dispatcher closed", "to", msg.To, "subject", msg.Subject)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("mail dispatch panicked", "panic", fmt.Sprint(r))
			}
		}()
		d.send(sendCtx, logger, msg)
	}()
}

func (d *Dispatcher) send(ctx context.Context, logger *slog.Logger, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ctx, span := otel.Tracer("notification").Start(ctx, "notification.Send")
	span.SetAttributes(
		attribute.String("mail.kind", msg.Kind),
		attribute.Int("mail.recipients", len(msg.To)+len(msg.Bcc)),
	)
	defer span.End()

	start := time.Now()
	res, err := d.mailer.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("mail dispatch failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return
	}
	logger.Info("mail dispatched",
		"to", msg.To,
		"message_id", res.MessageID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Close stops accepting messages and waits for in-flight sends like Wait.
// Messages dispatched after Close are dropped and logged.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Wait(ctx)
}

// Wait blocks until every dispatched message has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
