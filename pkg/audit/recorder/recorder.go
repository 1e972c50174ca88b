// Package recorder writes audit records asynchronously so that governance
// operations never wait on audit storage.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/overseer/pkg/audit"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables recording. A disabled recorder accepts and discards.
	Enabled bool

	// AsyncBuffer is the size of the write queue.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both enqueueing and each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// MaxFieldLength truncates Action and Summary.
	// Default: 500
	MaxFieldLength int
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		MaxFieldLength: 500,
	}
}

// Recorder queues audit records and drains them into storage on a single
// background worker.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.Record
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger
	clock      func() time.Time

	mu     sync.RWMutex
	closed bool

	onWrite func(record *audit.Record, err error)
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the clock used for RecordedAt and default timestamps.
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) { r.clock = clock }
}

// WithWriteHook registers fn to run on the worker after every storage attempt.
func WithWriteHook(fn func(record *audit.Record, err error)) Option {
	return func(r *Recorder) { r.onWrite = fn }
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage audit.Storage, config *Config, logger *slog.Logger, opts ...Option) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *audit.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "audit.recorder"),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record fills the record's ID, timestamps and truncated fields and enqueues
// it. It returns without waiting for storage.
func (r *Recorder) Record(ctx context.Context, record *audit.Record) error {
	if !r.config.Enabled || record == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return audit.NewRecorderError(record.ID, context.Canceled)
	}

	rec := record.Clone()
	now := r.clock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	rec.RecordedAt = now
	rec.Action = TruncateString(rec.Action, r.config.MaxFieldLength)
	rec.Summary = TruncateString(rec.Summary, r.config.MaxFieldLength)

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- rec:
		r.logger.Debug("audit record enqueued",
			"record_id", rec.ID,
			"event_type", rec.EventType,
		)
		return nil
	case <-ctx.Done():
		return audit.NewRecorderError(rec.ID, ctx.Err())
	case <-timer.C:
		r.logger.Error("audit queue full, dropping record",
			"record_id", rec.ID,
			"event_type", rec.EventType,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return audit.NewRecorderError(rec.ID, context.DeadlineExceeded)
	}
}

// Close stops accepting records, drains the queue and waits for the worker.
// It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("audit recorder shut down complete")
	return nil
}

// Pending returns the number of queued records.
func (r *Recorder) Pending() int {
	return len(r.recordChan)
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Info("draining audit queue before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := r.storage.Store(ctx, record)
	if r.onWrite != nil {
		r.onWrite(record, err)
	}
	if err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"event_type", record.EventType,
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
