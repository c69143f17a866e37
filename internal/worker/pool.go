package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail     = "jobs:email"
	QueueDocuments = "jobs:documents"
)

// Job types.
const (
	JobEmail                   = "email"
	JobReservationConfirmation = "reservation_confirmation"
	JobInvoicePDF              = "invoice_pdf"
)

const maxJobAttempts = 3

// dequeueRetryPause keeps workers from spinning while Redis is unreachable.
const dequeueRetryPause = 2 * time.Second

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes the payload of one job type. Returning an error wrapped
// with Permanent skips the remaining retries.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Handlers maps a job type to its handler.
type Handlers map[string]Handler

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (bad payload, deleted row...).
func Permanent(err error) error { return permanentError{err: err} }

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

type ReservationJobPayload struct {
	ReservationID uuid.UUID `json:"reservation_id"`
}

type InvoiceJobPayload struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
}

func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) EnqueueReservationConfirmation(ctx context.Context, reservationID uuid.UUID) error {
	return d.enqueue(ctx, QueueEmail, JobReservationConfirmation, ReservationJobPayload{ReservationID: reservationID})
}

func (d *Dispatcher) EnqueueInvoicePDF(ctx context.Context, invoiceID uuid.UUID) error {
	return d.enqueue(ctx, QueueDocuments, JobInvoicePDF, InvoiceJobPayload{InvoiceID: invoiceID})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// StartWorkerPool launches numWorkers goroutines consuming every queue.
// Each goroutine blocks on BRPOP, so idle workers cost nothing. The returned
// WaitGroup is done once all workers have observed ctx cancellation.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers Handlers, numWorkers int) *sync.WaitGroup {
	r := &runner{
		handlers:    handlers,
		maxAttempts: maxJobAttempts,
		backoff:     exponentialBackoff,
		deadLetter: func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
			SendToDLQ(ctx, rdb, queue, jobType, payload, reason, attempts)
		},
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, rdb, r, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

func runWorker(ctx context.Context, rdb *redis.Client, r *runner, id int) {
	queues := []string{QueueDocuments, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if pause := dequeueErrorPause(ctx, err); pause > 0 {
					log.Error().Err(err).Int("worker", id).Msg("dequeue failed")
					select {
					case <-ctx.Done():
					case <-time.After(pause):
					}
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			r.process(ctx, result[0], []byte(result[1]))
		}
	}
}

// dequeueErrorPause is how long a worker waits after a failed BRPOP. An
// empty poll or a shutdown needs no pause.
func dequeueErrorPause(ctx context.Context, err error) time.Duration {
	if errors.Is(err, redis.Nil) || ctx.Err() != nil ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0
	}
	return dequeueRetryPause
}

type runner struct {
	handlers    Handlers
	maxAttempts int
	backoff     func(attempt int) time.Duration
	deadLetter  func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int)
}

func (r *runner) process(ctx context.Context, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		r.deadLetter(ctx, queue, "", nil, fmt.Sprintf("malformed job %q: %v", raw, err), 0)
		return
	}

	handle, ok := r.handlers[job.Type]
	if !ok {
		r.deadLetter(ctx, queue, job.Type, job.Payload, "no handler registered", 0)
		return
	}

	attempts := 0
	err := withRetry(ctx, r.maxAttempts, r.backoff, func(int) error {
		attempts++
		return handle(ctx, job.Payload)
	})
	if err == nil {
		log.Debug().Str("type", job.Type).Str("queue", queue).Int("attempts", attempts).Msg("job done")
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	r.deadLetter(ctx, queue, job.Type, job.Payload, err.Error(), attempts)
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// withRetry calls fn up to maxAttempts times, sleeping backoff(i) before the
// i-th retry. A Permanent error stops immediately.
func withRetry(ctx context.Context, maxAttempts int, backoff func(int) time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(i)):
			}
		}
		err := fn(i)
		if err == nil {
			return nil
		}
		lastErr = err
		if isPermanent(err) {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("job attempt failed")
	}
	return lastErr
}
