package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/nannyhub/internal/audit/domain"
	auditcontext "github.com/smallbiznis/nannyhub/internal/auditcontext"
	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	"github.com/smallbiznis/nannyhub/internal/clock"
	"github.com/smallbiznis/nannyhub/internal/lock"
	obsmetrics "github.com/smallbiznis/nannyhub/internal/observability/metrics"
	advicedomain "github.com/smallbiznis/nannyhub/internal/paymentadvice/domain"
	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
	reassignmentdomain "github.com/smallbiznis/nannyhub/internal/reassignment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobAuthorizeDue        = "authorize_due"
	JobCaptureDue          = "capture_due"
	JobReassignmentTimeout = "reassignment_timeout"
	JobActivateStarted     = "activate_started"
	JobCompleteEnded       = "complete_ended"
	JobDeliverAdvices      = "deliver_advices"
)

// maxBatchesPerRun bounds how long one job drains its queue per tick.
const maxBatchesPerRun = 10

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type Params struct {
	fx.In

	Log           *zap.Logger
	GenID         *snowflake.Node
	Payments      paymentdomain.Service
	Bookings      bookingdomain.Service
	Reassignments reassignmentdomain.Service
	Advices       advicedomain.Service
	Locker        *lock.Locker `optional:"true"`
	Clock         clock.Clock  `optional:"true"`
	Config        Config       `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	locker        *lock.Locker
	payments      paymentdomain.Service
	bookings      bookingdomain.Service
	reassignments reassignmentdomain.Service
	advices       advicedomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Payments == nil || p.Bookings == nil || p.Reassignments == nil || p.Advices == nil {
		return nil, ErrInvalidConfig
	}
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         c,
		locker:        p.Locker,
		payments:      p.Payments,
		bookings:      p.Bookings,
		reassignments: p.Reassignments,
		advices:       p.Advices,
	}, nil
}

func lockKey(job string) string {
	return "nannyhub:scheduler:" + job
}

// runJob executes fn under the job's distributed lock. A held lock defers
// the job to the next tick and a deadline is reported as a soft timeout.
func (s *Scheduler) runJob(parent context.Context, name, resource string, fn func(ctx context.Context, run *jobRun) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	ctx, run := s.newJobRun(ctx, name, s.cfg.BatchSize)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)
	s.logJobStart(ctx, run)

	lockStart := time.Now()
	acquired, err := s.locker.WithLock(ctx, lockKey(name), s.cfg.JobTimeout, func(ctx context.Context) error {
		schedMetrics.ObserveDBLockWait(resource, time.Since(lockStart))
		return fn(ctx, run)
	})
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if !acquired && err == nil {
		schedMetrics.IncBatchDeferred(name, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		s.logger(ctx).Debug("scheduler.job.deferred", zap.String("job", name), zap.String("reason", "lock_held"))
		return nil
	}
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	schedMetrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

type scheduledJob struct {
	Name     string
	Resource string
	Run      func(context.Context, *jobRun) error
}

func (s *Scheduler) jobs() []scheduledJob {
	return []scheduledJob{
		{JobActivateStarted, obsmetrics.LockResourceBookingsDueActivation, s.ActivateStartedJob},
		{JobAuthorizeDue, obsmetrics.LockResourceBookingsDueAuthorization, s.AuthorizeDueJob},
		{JobCaptureDue, obsmetrics.LockResourceAuthorizationsDueCapture, s.CaptureDueJob},
		{JobReassignmentTimeout, obsmetrics.LockResourceReassignmentsExpired, s.ReassignmentTimeoutJob},
		{JobCompleteEnded, obsmetrics.LockResourceBookingsDueCompletion, s.CompleteEndedJob},
		{JobDeliverAdvices, obsmetrics.LockResourceAdvicesUndelivered, s.DeliverAdvicesJob},
	}
}

// RunOnce runs every enabled job once and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, job := range s.jobs() {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Resource, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty list enables every job.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), jobName) {
			return true
		}
	}
	return false
}

// drain calls batch until it returns fewer than BatchSize rows.
func (s *Scheduler) drain(ctx context.Context, run *jobRun, resource string, batch func(context.Context) (int, error)) error {
	schedMetrics := obsmetrics.Scheduler()
	for i := 0; i < maxBatchesPerRun; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := batch(ctx)
		run.AddProcessed(n)
		schedMetrics.AddBatchProcessed(run.job, resource, n)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.batch.failed", err, zap.String("resource", resource))
			return err
		}
		if n < s.cfg.BatchSize {
			return nil
		}
	}
	return nil
}

// sweep runs one payment pass. Gateway failures stay on their rows and are
// picked up on a later tick, so a pass with failures is not repeated.
func (s *Scheduler) sweep(ctx context.Context, run *jobRun, resource string, fn func(context.Context, time.Time, int) (paymentdomain.SweepResult, error)) error {
	schedMetrics := obsmetrics.Scheduler()
	for i := 0; i < maxBatchesPerRun; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := fn(ctx, s.clock.Now(), s.cfg.BatchSize)
		run.AddProcessed(res.Succeeded)
		run.AddFailed(res.Failed)
		schedMetrics.AddBatchProcessed(run.job, resource, res.Processed)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.batch.failed", err, zap.String("resource", resource))
			return err
		}
		if res.Failed > 0 {
			schedMetrics.IncBatchDeferred(run.job, obsmetrics.SchedulerBatchDeferredReasonGatewayFailure)
			return nil
		}
		if res.Processed < s.cfg.BatchSize {
			return nil
		}
	}
	return nil
}

func (s *Scheduler) AuthorizeDueJob(ctx context.Context, run *jobRun) error {
	return s.sweep(ctx, run, obsmetrics.LockResourceBookingsDueAuthorization, s.payments.AuthorizeDue)
}

func (s *Scheduler) CaptureDueJob(ctx context.Context, run *jobRun) error {
	return s.sweep(ctx, run, obsmetrics.LockResourceAuthorizationsDueCapture, s.payments.CaptureDue)
}

func (s *Scheduler) ReassignmentTimeoutJob(ctx context.Context, run *jobRun) error {
	return s.drain(ctx, run, obsmetrics.LockResourceReassignmentsExpired, func(ctx context.Context) (int, error) {
		return s.reassignments.EscalateExpired(ctx, s.clock.Now(), s.cfg.BatchSize)
	})
}

func (s *Scheduler) ActivateStartedJob(ctx context.Context, run *jobRun) error {
	return s.drain(ctx, run, obsmetrics.LockResourceBookingsDueActivation, func(ctx context.Context) (int, error) {
		return s.bookings.ActivateStarted(ctx, s.clock.Now(), s.cfg.BatchSize)
	})
}

func (s *Scheduler) CompleteEndedJob(ctx context.Context, run *jobRun) error {
	return s.drain(ctx, run, obsmetrics.LockResourceBookingsDueCompletion, func(ctx context.Context) (int, error) {
		return s.bookings.CompleteEnded(ctx, s.clock.Now(), s.cfg.BatchSize)
	})
}

func (s *Scheduler) DeliverAdvicesJob(ctx context.Context, run *jobRun) error {
	return s.drain(ctx, run, obsmetrics.LockResourceAdvicesUndelivered, func(ctx context.Context) (int, error) {
		return s.advices.DeliverPending(ctx, s.cfg.BatchSize)
	})
}
