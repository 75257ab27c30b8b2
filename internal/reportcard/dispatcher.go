package reportcard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher hands results to a Sink on a fixed pool of workers. Dispatch never
// blocks the caller: when the queue is full the result is dropped and logged.
type Dispatcher struct {
	sink    Sink
	queue   chan ExamGraded
	logger  *slog.Logger
	timeout time.Duration

	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single Sink call.
	Timeout time.Duration
}

func NewDispatcher(sink Sink, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan ExamGraded, cfg.QueueSize),
		logger:  logger,
		timeout: cfg.Timeout,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Dispatch(result ExamGraded) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- result:
		return nil
	default:
		d.logger.Error("Report card queue full, dropping result",
			"student_id", result.StudentID,
			"exam_id", result.ExamID)
		return errors.New("report card queue full")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for result := range d.queue {
		d.deliver(result)
	}
}

func (d *Dispatcher) deliver(result ExamGraded) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Report card sink panicked", "exam_id", result.ExamID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.OnExamGraded(ctx, result); err != nil {
		d.logger.Error("Failed to deliver result to report card",
			"student_id", result.StudentID,
			"exam_id", result.ExamID,
			"error", err)
		return
	}
	d.logger.Debug("Delivered result to report card",
		"student_id", result.StudentID,
		"exam_id", result.ExamID)
}

// Close stops accepting results and waits for queued ones to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

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
