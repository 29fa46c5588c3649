package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/sasha-s/go-deadlock"
)

// DefaultSpec runs the audit every fifteen minutes.
const DefaultSpec = "@every 15m"

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSpec reports whether spec is a schedule the Scheduler accepts.
// Both five and six field specs are valid, as are descriptors like @hourly.
func ValidateSpec(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("reconcile: invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Scheduler runs an Auditor on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	auditor *Auditor
	logger  *slog.Logger
	ctx     context.Context

	mu   deadlock.Mutex
	last *Report
}

// NewScheduler registers the auditor under spec. Runs that overlap a still
// running audit are skipped.
func NewScheduler(ctx context.Context, a *Auditor, spec string) (*Scheduler, error) {
	s := &Scheduler{
		auditor: a,
		logger:  a.logger,
		ctx:     ctx,
	}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("reconcile: register schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	if _, err := s.RunNow(s.ctx); err != nil {
		s.logger.Error("reconcile: scheduled check failed", "error", err)
	}
}

// RunNow audits immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (*Report, error) {
	r, err := s.auditor.Check(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = r
	s.mu.Unlock()
	return r, nil
}

// Last returns the most recent report, or nil before the first run.
func (s *Scheduler) Last() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("reconcile: scheduler started")
}

// Stop halts the schedule and waits for a running audit to finish or for
// ctx to be done, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("reconcile: scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
