package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-verify-nosql/internal/domain"
)

// Sender delivers a verification notification to recipient.
type Sender interface {
	Send(ctx context.Context, recipient string, n domain.Notification) error
}

// Multi fans a notification out to every sender. All senders are attempted;
// the returned error joins each failure.
type Multi []Sender

func (m Multi) Send(ctx context.Context, recipient string, n domain.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, recipient, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const defaultDispatchTimeout = 30 * time.Second

// Dispatcher sends notifications in the background. Callers never observe
// delivery failures; they are logged.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{sender: sender, timeout: timeout}
}

// Dispatch queues n for delivery and returns immediately.
func (d *Dispatcher) Dispatch(recipient string, n domain.Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, recipient, n); err != nil {
			slog.Error("notification delivery failed", "context", n.Context, "recipient", recipient, "err", err)
			return
		}
		slog.Debug("notification delivered", "context", n.Context, "recipient", recipient)
	}()
}

// Wait blocks until all dispatched notifications have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
