package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"helios-hq/ceres/pkg/router"
)

// Config controls the audit logger.
type Config struct {
	// Dir is the directory session log files are created in. Created if
	// missing.
	Dir string

	// SessionTag, when set, is embedded in the log file name so parallel
	// sessions on one host stay distinguishable.
	SessionTag string

	// QueueCapacity bounds the submission queue. Records submitted while
	// the queue is full are dropped and counted.
	QueueCapacity int

	// StopTimeout bounds how long Stop waits for the worker to drain the
	// queue before giving up.
	StopTimeout time.Duration
}

// DefaultConfig returns the standard audit logger configuration.
func DefaultConfig() Config {
	return Config{
		Dir:           filepath.Join("logs", "audit"),
		QueueCapacity: 10000,
		StopTimeout:   5 * time.Second,
	}
}

// Logger is a non-blocking append-only JSONL writer. Exactly one background
// worker owns the file; Submit hands records to it through a bounded queue
// and never waits.
type Logger struct {
	config Config
	path   string
	log    *slog.Logger

	queue chan *Record
	done  chan struct{}

	file   *os.File
	writer *bufio.Writer
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	written atomic.Int64
	dropped atomic.Int64
}

// NewLogger creates the session log directory and derives the log file path.
// The file itself is opened by Start.
func NewLogger(config Config) (*Logger, error) {
	if config.Dir == "" {
		config.Dir = DefaultConfig().Dir
	}
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = DefaultConfig().QueueCapacity
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultConfig().StopTimeout
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	name := "audit"
	if config.SessionTag != "" {
		name += "_" + config.SessionTag
	}
	name += "_" + time.Now().UTC().Format("20060102T150405Z") + ".jsonl"

	return &Logger{
		config: config,
		path:   filepath.Join(config.Dir, name),
		log:    slog.Default().With("component", "audit"),
		queue:  make(chan *Record, config.QueueCapacity),
		done:   make(chan struct{}),
	}, nil
}

// Path returns the session log file path.
func (l *Logger) Path() string { return l.path }

// Written returns the number of records persisted so far.
func (l *Logger) Written() int64 { return l.written.Load() }

// Dropped returns the number of records rejected because the queue was full.
func (l *Logger) Dropped() int64 { return l.dropped.Load() }

// Start opens the session log file and launches the writer worker. Records
// submitted before Start sit in the queue until the worker comes up.
func (l *Logger) Start() error {
	var err error
	l.startOnce.Do(func() {
		l.file, err = os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			err = fmt.Errorf("opening audit log: %w", err)
			return
		}
		l.writer = bufio.NewWriter(l.file)
		l.wg.Add(1)
		go l.run()
		l.log.Info("audit logger started", "path", l.path, "queue_capacity", l.config.QueueCapacity)
	})
	return err
}

// Submit enqueues one decision event for persistence. It never blocks: if
// the queue is full the record is dropped and the drop counter incremented.
func (l *Logger) Submit(event *router.Event, perf *router.Perf) {
	rec := NewRecord(event, perf)
	select {
	case l.queue <- rec:
	default:
		n := l.dropped.Add(1)
		if n == 1 || n%1000 == 0 {
			l.log.Warn("audit queue full, dropping record", "dropped_total", n, "event_id", rec.ID)
		}
	}
}

// Stop signals the worker to drain the queue and waits up to timeout for it
// to finish. A timeout of zero waits for the configured StopTimeout. The
// worker keeps draining past the deadline; only the caller's wait is bounded.
func (l *Logger) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = l.config.StopTimeout
	}

	l.stopOnce.Do(func() { close(l.done) })

	finished := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		l.log.Info("audit logger stopped",
			"written", l.written.Load(), "dropped", l.dropped.Load())
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit drain incomplete after %s: %d records still queued", timeout, len(l.queue))
	}
}

func (l *Logger) run() {
	defer l.wg.Done()

	for {
		select {
		case rec := <-l.queue:
			l.write(rec)
		case <-l.done:
			l.drain()
			return
		}
	}
}

// drain writes every record still queued, then flushes and closes the file.
func (l *Logger) drain() {
	for {
		select {
		case rec := <-l.queue:
			l.write(rec)
		default:
			if err := l.writer.Flush(); err != nil {
				l.log.Error("flushing audit log", "error", err)
			}
			if err := l.file.Close(); err != nil {
				l.log.Error("closing audit log", "error", err)
			}
			return
		}
	}
}

func (l *Logger) write(rec *Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		l.log.Error("marshaling audit record", "event_id", rec.ID, "error", err)
		return
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		l.log.Error("writing audit record", "event_id", rec.ID, "error", err)
		return
	}
	l.written.Add(1)
}
