package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/middleware"
)

const (
	DefaultQueueSize = 128
	DefaultWorkers   = 2
	sendTimeout      = 30 * time.Second
)

var (
	ErrQueueFull = errors.New("mail queue is full")
	ErrClosed    = errors.New("mail dispatcher is shut down")
)

// Dispatcher sends messages on background workers so requests never wait on SMTP.
type Dispatcher struct {
	mailer Mailer
	queue  chan Message

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines draining a queue of queueSize messages.
func NewDispatcher(mailer Mailer, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	d := &Dispatcher{
		mailer: mailer,
		queue:  make(chan Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Enqueue hands msg to the workers without blocking.
func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		middleware.EmailsSent.WithLabelValues(msg.Kind, "dropped").Inc()
		return ErrQueueFull
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			middleware.EmailsSent.WithLabelValues(msg.Kind, "failed").Inc()
			middleware.Logger.Error("panic while sending email", slog.Any("panic", r), slog.String("kind", msg.Kind))
		}
	}()

	if err := d.mailer.Send(ctx, msg); err != nil {
		middleware.EmailsSent.WithLabelValues(msg.Kind, "failed").Inc()
		middleware.Logger.Error("failed to send email",
			slog.String("kind", msg.Kind),
			slog.String("to", msg.To),
			slog.String("error", err.Error()))
		return
	}
	middleware.EmailsSent.WithLabelValues(msg.Kind, "sent").Inc()
}

// Shutdown stops accepting messages and waits for queued ones to be sent or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

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

// Name identifies the dispatcher in shutdown logs.
func (d *Dispatcher) Name() string { return "mail dispatcher" }
