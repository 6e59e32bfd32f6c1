// Package monitor polls location conditions against game memory.
//
// Locations are split into fixed-size batches and each batch is polled by a
// single goroutine, which bounds the number of concurrent pollers, and with
// them the read pressure on the game process, to ceil(N/BatchSize).
package monitor

import (
	"context"
	"time"

	"github.com/cbodonnell/apclient/pkg/locations"
	"github.com/cbodonnell/apclient/pkg/log"
	"github.com/cbodonnell/apclient/pkg/memory"
	"github.com/cbodonnell/apclient/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize = 25
	DefaultInterval  = 500 * time.Millisecond
)

// ReportFunc is called once for every location that becomes satisfied.
// Calls may come from several goroutines at once.
type ReportFunc func(ctx context.Context, location locations.Checker)

type Scheduler struct {
	reader    memory.Reader
	batchSize int
	interval  time.Duration
	gate      func() bool
	logger    *log.Logger
	metrics   *metrics.Metrics
}

type NewSchedulerOptions struct {
	Reader    memory.Reader
	BatchSize int
	Interval  time.Duration
	// Gate, when set, is consulted every tick; evaluation is skipped while it
	// returns false.
	Gate    func() bool
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

func NewScheduler(opts NewSchedulerOptions) *Scheduler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Scheduler{
		reader:    opts.Reader,
		batchSize: opts.BatchSize,
		interval:  opts.Interval,
		gate:      opts.Gate,
		logger:    opts.Logger.Named("monitor"),
		metrics:   opts.Metrics,
	}
}

// Batches splits list into consecutive chunks of at most size, keeping order.
func Batches(list []locations.Checker, size int) [][]locations.Checker {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]locations.Checker, 0, (len(list)+size-1)/size)
	for start := 0; start < len(list); start += size {
		end := min(start+size, len(list))
		batches = append(batches, list[start:end:end])
	}
	return batches
}

// Run polls until every location has been reported or ctx ends. Locations
// repeating an id already in the list are ignored. A configuration error from
// any location stops every poller and is returned; read errors only mean the
// location is not satisfied on that tick.
func (s *Scheduler) Run(ctx context.Context, list []locations.Checker, report ReportFunc) error {
	seen := make(map[int64]struct{}, len(list))
	unique := make([]locations.Checker, 0, len(list))
	for _, location := range list {
		id := location.Meta().ID
		if _, ok := seen[id]; ok {
			s.logger.Warn("Ignoring duplicate location %d", id)
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, location)
	}

	batches := Batches(unique, s.batchSize)
	s.logger.Debug("Monitoring %d locations in %d batches", len(unique), len(batches))

	g, ctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			return s.poll(ctx, i, batch, report)
		})
	}
	return g.Wait()
}

func (s *Scheduler) poll(ctx context.Context, index int, batch []locations.Checker, report ReportFunc) error {
	pending := append([]locations.Checker(nil), batch...)
	s.metrics.PollerStarted()
	defer s.metrics.PollerStopped()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if s.gate == nil || s.gate() {
			remaining := make([]locations.Checker, 0, len(pending))
			for _, location := range pending {
				if ctx.Err() != nil {
					return nil
				}
				ok, err := location.Check(s.reader)
				if err != nil {
					s.metrics.ObserveLocationCheck(metrics.CheckError)
					if locations.IsConfigError(err) {
						return err
					}
					s.logger.Trace("Failed to check location %d: %v", location.Meta().ID, err)
					remaining = append(remaining, location)
					continue
				}
				if !ok {
					s.metrics.ObserveLocationCheck(metrics.CheckPending)
					remaining = append(remaining, location)
					continue
				}
				s.metrics.ObserveLocationCheck(metrics.CheckSatisfied)
				report(ctx, location)
			}
			pending = remaining
		}

		if len(pending) == 0 {
			s.logger.Debug("Batch %d complete", index)
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
