// Package jobs runs the server's periodic maintenance on a gocron scheduler.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/juanlo017/cerves-app/internal/backup"
	"github.com/juanlo017/cerves-app/internal/middleware"
	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/push"
	"github.com/juanlo017/cerves-app/internal/store"
	"github.com/juanlo017/cerves-app/internal/websocket"
)

const (
	expiryInterval  = time.Hour
	limiterInterval = 5 * time.Minute
	recapHour       = 10
)

// Deps are the components the jobs act on. Nil optional components
// disable the jobs that need them.
type Deps struct {
	Invitations   *store.InvitationStore
	InvitationTTL time.Duration
	Hub           *websocket.Hub
	Limiter       *middleware.RateLimiter

	Backups    *backup.Manager
	BackupHour int

	Notifier *push.Notifier
	Weekly   push.WeeklySource
}

type Runner struct {
	deps   Deps
	sched  gocron.Scheduler
	logger *slog.Logger
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
}

func New(deps Deps, logger *slog.Logger) (*Runner, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		deps:   deps,
		sched:  sched,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (r *Runner) add(name string, def gocron.JobDefinition, fn func(context.Context)) error {
	_, err := r.sched.NewJob(def,
		gocron.NewTask(func() { fn(r.ctx) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// Register schedules every job whose dependencies are present.
func (r *Runner) Register() error {
	if r.deps.Invitations != nil {
		if err := r.add("expire-invitations", gocron.DurationJob(expiryInterval), r.ExpireInvitations); err != nil {
			return err
		}
	}
	if r.deps.Limiter != nil {
		if err := r.add("limiter-cleanup", gocron.DurationJob(limiterInterval), r.CleanupLimiter); err != nil {
			return err
		}
	}
	if r.deps.Backups != nil && r.deps.Backups.Enabled() {
		at := gocron.NewAtTimes(gocron.NewAtTime(uint(r.deps.BackupHour), 0, 0))
		if err := r.add("nightly-backup", gocron.DailyJob(1, at), r.Backup); err != nil {
			return err
		}
	}
	if r.deps.Notifier != nil && r.deps.Weekly != nil {
		def := gocron.WeeklyJob(1,
			gocron.NewWeekdays(time.Monday),
			gocron.NewAtTimes(gocron.NewAtTime(recapHour, 0, 0)),
		)
		if err := r.add("weekly-recap", def, r.WeeklyRecap); err != nil {
			return err
		}
	}
	return nil
}

// JobNames lists the scheduled jobs.
func (r *Runner) JobNames() []string {
	var names []string
	for _, j := range r.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (r *Runner) Start() {
	r.sched.Start()
	r.logger.Info("scheduler started", "jobs", r.JobNames())
}

// Shutdown cancels running jobs and waits for them to return.
func (r *Runner) Shutdown() error {
	r.cancel()
	return r.sched.Shutdown()
}

// ExpireInvitations marks stale pending invitations expired and refreshes
// the affected players' badges.
func (r *Runner) ExpireInvitations(ctx context.Context) {
	ttl := r.deps.InvitationTTL
	if ttl <= 0 {
		return
	}
	userIDs, err := r.deps.Invitations.ExpireOlderThan(r.now().Add(-ttl))
	if err != nil {
		r.logger.Error("expire invitations", "error", err)
		return
	}
	if len(userIDs) == 0 {
		return
	}
	r.logger.Info("expired invitations", "count", len(userIDs))

	if r.deps.Hub == nil {
		return
	}
	seen := make(map[string]bool, len(userIDs))
	for _, uid := range userIDs {
		if seen[uid] || ctx.Err() != nil {
			continue
		}
		seen[uid] = true
		count, err := r.deps.Invitations.PendingCount(uid)
		if err != nil {
			r.logger.Error("pending invitation count", "user_id", uid, "error", err)
			continue
		}
		r.deps.Hub.SendTo(websocket.NewMessage("invitation", "expired", "", map[string]any{"pending": count}), uid)
	}
}

func (r *Runner) CleanupLimiter(context.Context) {
	if n := r.deps.Limiter.Cleanup(); n > 0 {
		r.logger.Debug("rate limiter cleanup", "removed", n)
	}
}

// Backup uploads a snapshot and then prunes old ones. Pruning only runs
// after a successful upload.
func (r *Runner) Backup(ctx context.Context) {
	if _, err := r.deps.Backups.RunNow(ctx, model.BackupScheduled); err != nil {
		return
	}
	if n, err := r.deps.Backups.Cleanup(ctx); err != nil {
		r.logger.Error("backup cleanup", "error", err)
	} else if n > 0 {
		r.logger.Info("pruned old backups", "count", n)
	}
}

func (r *Runner) WeeklyRecap(ctx context.Context) {
	sent, err := r.deps.Notifier.WeeklyRecap(ctx, r.deps.Weekly)
	if err != nil {
		r.logger.Error("weekly recap", "error", err)
		return
	}
	r.logger.Info("weekly recap sent", "notifications", sent)
}
