package notify

import (
	"context"
	"sync"
	"time"

	"prediction-pool/internal/pool"

	"github.com/rs/zerolog/log"
)

// Sink delivers envelopes to one external destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, env Envelope) error
}

type Config struct {
	Workers        int
	RetryMax       int
	RetryBase      time.Duration
	DispatchBuffer int
}

type job struct {
	sink    Sink
	env     Envelope
	attempt int
}

// Dispatcher implements pool.Notifier. Notify never blocks the caller: the envelope is
// appended to the replay buffer and queued once per sink for the worker pool.
type Dispatcher struct {
	cfg    Config
	buffer *Buffer
	sinks  []Sink
	now    func() time.Time

	jobs   chan job
	retryQ *retryQueue
	done   chan struct{}

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(cfg Config, buf *Buffer, sinks ...Sink) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 1024
	}
	d := &Dispatcher{
		cfg:    cfg,
		buffer: buf,
		sinks:  sinks,
		now:    time.Now,
		jobs:   make(chan job, cfg.DispatchBuffer),
		done:   make(chan struct{}),
	}
	d.retryQ = newRetryQueue(d.jobs, d.done)
	return d
}

func (d *Dispatcher) Buffer() *Buffer {
	return d.buffer
}

func (d *Dispatcher) Notify(_ context.Context, ev pool.Event) {
	var env Envelope
	if d.buffer != nil {
		env = d.buffer.Publish(ev, d.now())
	} else {
		env = NewEnvelope(ev, d.now())
	}
	metricEvents.WithLabelValues(string(ev.Type)).Inc()
	for _, s := range d.sinks {
		select {
		case d.jobs <- job{sink: s, env: env}:
			metricQueueLen.Set(float64(len(d.jobs)))
		default:
			metricDropped.WithLabelValues(s.Name(), "queue_full").Inc()
			log.Warn().Str("sink", s.Name()).Str("event_id", env.EventID).Msg("notify queue full")
		}
	}
}

// Run starts the workers and blocks until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		<-ctx.Done()
		return nil
	}
	d.started = true
	d.mu.Unlock()

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.worker(ctx)
		}()
	}
	<-ctx.Done()
	close(d.done)
	d.wg.Wait()
	if d.buffer != nil {
		d.buffer.Close()
	}
	return nil
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.jobs:
			metricQueueLen.Set(float64(len(d.jobs)))
			d.process(ctx, j)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	name := j.sink.Name()
	if err := j.sink.Send(ctx, j.env); err != nil {
		metricFailed.WithLabelValues(name).Inc()
		if !d.retryOrDrop(j) {
			log.Error().Err(err).Str("sink", name).Str("event_id", j.env.EventID).
				Int("attempts", j.attempt+1).Msg("notify dropped")
		}
		return
	}
	metricSent.WithLabelValues(name).Inc()
}

func (d *Dispatcher) retryOrDrop(j job) bool {
	if j.attempt >= d.cfg.RetryMax {
		metricDropped.WithLabelValues(j.sink.Name(), "retry_exhausted").Inc()
		return false
	}
	j.attempt++
	metricRetried.WithLabelValues(j.sink.Name()).Inc()
	d.retryQ.Enqueue(j, d.cfg.RetryBase*time.Duration(1<<(j.attempt-1)))
	return true
}

type retryQueue struct {
	out  chan<- job
	done <-chan struct{}
}

func newRetryQueue(out chan<- job, done <-chan struct{}) *retryQueue {
	return &retryQueue{out: out, done: done}
}

func (q *retryQueue) Enqueue(j job, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		select {
		case <-q.done:
		case q.out <- j:
		}
	})
}

var _ pool.Notifier = (*Dispatcher)(nil)
