package influx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
	"github.com/rs/zerolog"
)

const (
	DefaultMeasurement   = "camlink_exchange"
	DefaultBatchSize     = 100
	DefaultFlushInterval = time.Second

	closeTimeout = 5 * time.Second
)

var ErrRecorderClosed = errors.New("telemetry recorder closed")

type Config struct {
	URL      string
	Token    string
	Database string
}

type Options struct {
	Measurement   string
	Device        string
	BatchSize     int
	FlushInterval time.Duration
}

// PointWriter is the part of the InfluxDB client the recorder needs.
type PointWriter interface {
	WritePoints(ctx context.Context, points []*influxdb3.Point, options ...influxdb3.WriteOption) error
	Close() error
}

type sample struct {
	at      time.Time
	id      domain.RequestID
	command string
	outcome string
	rtt     time.Duration
	timeout time.Duration
}

// Recorder exports one point per finished request. Publish never blocks the loop:
// samples go through a buffered channel and a background goroutine writes them in
// batches.
type Recorder struct {
	writer PointWriter
	opts   Options
	log    zerolog.Logger

	samples chan sample
	stop    chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

var _ ports.EventSink = (*Recorder)(nil)

func New(cfg Config, opts Options, log zerolog.Logger) (*Recorder, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     cfg.URL,
		Token:    cfg.Token,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("create influxdb client: %w", err)
	}
	return NewWithWriter(client, opts, log), nil
}

func NewWithWriter(writer PointWriter, opts Options, log zerolog.Logger) *Recorder {
	if opts.Measurement == "" {
		opts.Measurement = DefaultMeasurement
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}

	r := &Recorder{
		writer:  writer,
		opts:    opts,
		log:     log.With().Str("component", "influx").Logger(),
		samples: make(chan sample, opts.BatchSize*2),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.writeLoop()
	return r
}

func (r *Recorder) Publish(event domain.Event) {
	if event.Kind != domain.EventMatched && event.Kind != domain.EventTimedOut {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	s := sample{
		at:      event.At,
		id:      event.RequestID,
		command: event.Command,
		outcome: event.Outcome(),
		rtt:     event.RoundTrip,
		timeout: event.Timeout,
	}
	select {
	case r.samples <- s:
	default:
		r.log.Warn().Str("req_id", string(event.RequestID)).Msg("telemetry buffer full, dropping sample")
	}
}

func (r *Recorder) writeLoop() {
	defer close(r.done)

	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]sample, 0, r.opts.BatchSize)
	for {
		select {
		case <-r.stop:
			for {
				select {
				case s := <-r.samples:
					batch = append(batch, s)
				default:
					ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
					r.flush(ctx, batch)
					cancel()
					return
				}
			}
		case s := <-r.samples:
			batch = append(batch, s)
			if len(batch) >= r.opts.BatchSize {
				r.flush(context.Background(), batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(context.Background(), batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *Recorder) flush(ctx context.Context, batch []sample) {
	if len(batch) == 0 {
		return
	}

	points := make([]*influxdb3.Point, 0, len(batch))
	for _, s := range batch {
		points = append(points, r.point(s))
	}

	if err := r.writer.WritePoints(ctx, points); err != nil {
		r.log.Error().Err(err).Int("points", len(points)).Msg("write telemetry points")
		return
	}
	r.log.Debug().Int("points", len(points)).Msg("flushed telemetry")
}

func (r *Recorder) point(s sample) *influxdb3.Point {
	tags := map[string]string{
		"cmd":     s.command,
		"outcome": s.outcome,
	}
	if r.opts.Device != "" {
		tags["device"] = r.opts.Device
	}

	return influxdb3.NewPoint(
		r.opts.Measurement,
		tags,
		map[string]any{
			"req_id":     string(s.id),
			"rtt_ms":     s.rtt.Milliseconds(),
			"timeout_ms": s.timeout.Milliseconds(),
		},
		s.at,
	)
}

// Close flushes queued samples and closes the writer. Later calls return
// ErrRecorderClosed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stop)
	<-r.done

	if err := r.writer.Close(); err != nil {
		return fmt.Errorf("close influxdb client: %w", err)
	}
	return nil
}
