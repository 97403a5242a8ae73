package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
)

type SchedulerState string

const (
	SchedulerStateDisabled  SchedulerState = "disabled"
	SchedulerStateSuspended SchedulerState = "suspended"
	SchedulerStatePolling   SchedulerState = "polling"
)

type SchedulerConfig struct {
	Interval    time.Duration
	Workers     int
	Enabled     bool
	TickTimeout time.Duration
}

type SchedulerStatus struct {
	State        SchedulerState `json:"state"`
	Enabled      bool           `json:"enabled"`
	Visible      bool           `json:"visible"`
	IntervalSecs int            `json:"interval_secs"`
	AuthFailed   bool           `json:"auth_failed"`
	LastTickAt   *time.Time     `json:"last_tick_at,omitempty"`
	LastTickNote string         `json:"last_tick_note,omitempty"`
}

type TickSummary struct {
	Ran         bool
	InWindow    bool
	Subjects    int
	Upserted    int
	Deleted     int
	Failed      int
	Skipped     int
	RateLimited bool
}

// PollScheduler owns the repeating timer. It polls only while enabled by
// an operator AND at least one viewer is attending; every tick passes
// through the window predicate before any provider call is made.
type PollScheduler struct {
	subjectRepo  subject.Repository
	windowSvc    *WindowService
	reconcileSvc *ReconcileService
	competition  string
	logger       *logging.Logger

	mu           sync.Mutex
	enabled      bool
	visible      bool
	interval     time.Duration
	lastTickAt   time.Time
	lastTickNote string

	workers     int
	tickTimeout time.Duration

	// Drops timer firings while a slow tick is still running.
	inFlight atomic.Bool
	// Latched on credential failure; cleared when an operator re-enables.
	authFailed atomic.Bool

	wake chan struct{}
	now  func() time.Time
}

func NewPollScheduler(
	subjectRepo subject.Repository,
	windowSvc *WindowService,
	reconcileSvc *ReconcileService,
	competition string,
	cfg SchedulerConfig,
	logger *logging.Logger,
) *PollScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = 25 * time.Second
	}

	return &PollScheduler{
		subjectRepo:  subjectRepo,
		windowSvc:    windowSvc,
		reconcileSvc: reconcileSvc,
		competition:  competition,
		logger:       logger,
		enabled:      cfg.Enabled,
		interval:     cfg.Interval,
		workers:      cfg.Workers,
		tickTimeout:  cfg.TickTimeout,
		wake:         make(chan struct{}, 1),
		now:          time.Now,
	}
}

// Run drives the timer loop until ctx is cancelled. State changes via
// SetEnabled/SetVisible/SetInterval wake the loop; entering the polling
// state fires one immediate catch-up tick before the timer cadence.
func (s *PollScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()

	wasPolling := false
	for {
		polling := s.State() == SchedulerStatePolling
		if polling && !wasPolling {
			ticker.Reset(s.Interval())
			s.runTick(ctx)
		}
		wasPolling = polling

		var tickC <-chan time.Time
		if polling {
			tickC = ticker.C
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			ticker.Reset(s.Interval())
		case <-tickC:
			s.runTick(ctx)
		}
	}
}

func (s *PollScheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	changed := s.enabled != enabled
	s.enabled = enabled
	s.mu.Unlock()

	if !changed {
		return
	}
	if enabled {
		// Re-enabling is the operator's reset path after fixing credentials.
		s.authFailed.Store(false)
	}
	s.signalWake()
	s.logger.Info("poll scheduler enabled flag changed", "enabled", enabled)
}

func (s *PollScheduler) SetVisible(visible bool) {
	s.mu.Lock()
	changed := s.visible != visible
	s.visible = visible
	s.mu.Unlock()

	if !changed {
		return
	}
	s.signalWake()
	s.logger.Debug("poll scheduler visibility changed", "visible", visible)
}

func (s *PollScheduler) SetInterval(interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("%w: interval must be at least 1s", ErrInvalidInput)
	}
	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()
	s.signalWake()
	return nil
}

func (s *PollScheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *PollScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.enabled:
		return SchedulerStateDisabled
	case !s.visible:
		return SchedulerStateSuspended
	default:
		return SchedulerStatePolling
	}
}

func (s *PollScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		Enabled:      s.enabled,
		Visible:      s.visible,
		IntervalSecs: int(s.interval / time.Second),
		AuthFailed:   s.authFailed.Load(),
		LastTickNote: s.lastTickNote,
	}
	switch {
	case !s.enabled:
		status.State = SchedulerStateDisabled
	case !s.visible:
		status.State = SchedulerStateSuspended
	default:
		status.State = SchedulerStatePolling
	}
	if !s.lastTickAt.IsZero() {
		at := s.lastTickAt
		status.LastTickAt = &at
	}
	return status
}

func (s *PollScheduler) runTick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()
	_, _ = s.Tick(tickCtx)
}

// Tick runs one polling cycle. Exported so operator tooling can force a
// cycle outside the timer cadence.
func (s *PollScheduler) Tick(ctx context.Context) (TickSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "PollScheduler.Tick")
	defer span.End()

	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.WarnContext(ctx, "tick still in flight, dropping timer firing")
		return TickSummary{}, nil
	}
	defer s.inFlight.Store(false)

	now := s.now().UTC()
	s.noteTick(now, "")

	if s.authFailed.Load() {
		s.noteTick(now, "suspended: provider credentials rejected")
		s.logger.WarnContext(ctx, "skipping tick, provider credentials rejected; re-enable after fixing them")
		return TickSummary{}, nil
	}

	if !s.windowSvc.IsWithinMatchWindow(ctx, now) {
		s.noteTick(now, "skipped: outside match window")
		s.logger.DebugContext(ctx, "skipping tick, outside match window", "competition", s.competition)
		return TickSummary{Ran: true}, nil
	}

	subjects, err := s.subjectRepo.ListByCompetition(ctx, s.competition)
	if err != nil {
		s.noteTick(now, "failed: subject listing")
		return TickSummary{Ran: true, InWindow: true}, fmt.Errorf("list subjects: %w", err)
	}
	if len(subjects) == 0 {
		s.noteTick(now, "no tracked subjects")
		return TickSummary{Ran: true, InWindow: true}, nil
	}

	workerCount := s.workers
	if workerCount > len(subjects) {
		workerCount = len(subjects)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return TickSummary{Ran: true, InWindow: true}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var upserted, deleted, failed, skipped atomic.Int32
	var rateLimited atomic.Bool

	var workers sync.WaitGroup
	for _, subj := range subjects {
		subj := subj
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			if rateLimited.Load() {
				skipped.Add(1)
				return
			}

			result, err := s.reconcileSvc.Reconcile(ctx, subj)
			if err != nil {
				s.handleReconcileError(ctx, subj, err, &rateLimited)
				failed.Add(1)
				return
			}

			switch result.Action {
			case ReconcileActionUpserted, ReconcileActionFinished:
				upserted.Add(1)
			case ReconcileActionDeleted:
				deleted.Add(1)
			case ReconcileActionSkipped:
				skipped.Add(1)
			}
		}); err != nil {
			workers.Done()
			failed.Add(1)
			s.logger.WarnContext(ctx, "submit reconcile to worker pool failed", "subject_id", subj.ID, "error", err)
		}
	}
	workers.Wait()

	summary := TickSummary{
		Ran:         true,
		InWindow:    true,
		Subjects:    len(subjects),
		Upserted:    int(upserted.Load()),
		Deleted:     int(deleted.Load()),
		Failed:      int(failed.Load()),
		Skipped:     int(skipped.Load()),
		RateLimited: rateLimited.Load(),
	}
	s.noteTick(now, fmt.Sprintf("subjects=%d upserted=%d deleted=%d failed=%d",
		summary.Subjects, summary.Upserted, summary.Deleted, summary.Failed))
	s.logger.InfoContext(ctx, "poll tick finished",
		"subjects", summary.Subjects,
		"upserted", summary.Upserted,
		"deleted", summary.Deleted,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"rate_limited", summary.RateLimited,
	)

	return summary, nil
}

// Failures are isolated per subject: a credential failure latches the
// whole scheduler, a rate limit sheds the rest of the tick, everything
// else waits for the next tick.
func (s *PollScheduler) handleReconcileError(ctx context.Context, subj subject.Subject, err error, rateLimited *atomic.Bool) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		s.authFailed.Store(true)
		s.logger.ErrorContext(ctx, "provider rejected credentials, latching scheduler off",
			"subject_id", subj.ID, "error", err)
	case errors.Is(err, ErrRateLimited):
		rateLimited.Store(true)
		s.logger.WarnContext(ctx, "provider rate limited, shedding remaining subjects this tick",
			"subject_id", subj.ID, "error", err)
	case errors.Is(err, ErrMalformedResponse):
		s.logger.WarnContext(ctx, "provider response malformed, leaving existing row untouched",
			"subject_id", subj.ID, "error", err)
	default:
		s.logger.WarnContext(ctx, "reconcile failed, will retry next tick",
			"subject_id", subj.ID, "error", err)
	}
}

func (s *PollScheduler) noteTick(at time.Time, note string) {
	s.mu.Lock()
	s.lastTickAt = at
	if note != "" {
		s.lastTickNote = note
	}
	s.mu.Unlock()
}

func (s *PollScheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
