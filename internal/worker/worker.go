// Package worker runs the remediation control loop: detect issues per
// tenant, execute playbooks where automation allows, notify, repeat.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/hostwarden/hostwarden/internal/conf"
	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/hostwarden/hostwarden/internal/datastore/repository"
	"github.com/hostwarden/hostwarden/internal/logger"
	"github.com/hostwarden/hostwarden/internal/notify"
	"github.com/hostwarden/hostwarden/internal/playbook"
	gocache "github.com/patrickmn/go-cache"
)

const (
	// tenantBudget caps one tenant's detect-and-remediate pass, including
	// the pass that is allowed to finish after shutdown is requested.
	tenantBudget = 10 * time.Minute

	rosterCacheKey = "active_tenants"
)

// PlaybookRunner is what the worker needs from the playbook layer.
type PlaybookRunner interface {
	Execute(ctx context.Context, tenant *entities.Tenant, issue *entities.DetectedIssue) (*playbook.Result, error)
}

// IssueDetector is what the worker needs from the detection layer.
type IssueDetector interface {
	DetectIssues(ctx context.Context, tenantID uint) ([]entities.DetectedIssue, error)
}

// Worker is the single control loop. Tenants are evaluated strictly
// sequentially; one tenant's failure never stops the cycle.
type Worker struct {
	tenants  repository.TenantRepository
	issues   repository.IssueRepository
	detector IssueDetector
	runner   PlaybookRunner
	notifier *notify.Service
	log      logger.Logger
	cfg      conf.WorkerSettings
	metrics  *Metrics

	roster *gocache.Cache
	cycles uint64
}

// New creates a Worker. metrics may be nil to disable instrumentation.
func New(tenants repository.TenantRepository, issues repository.IssueRepository, detector IssueDetector, runner PlaybookRunner, notifier *notify.Service, cfg conf.WorkerSettings, metrics *Metrics, log logger.Logger) *Worker {
	ttl := cfg.TenantCacheTTL.Std()
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Worker{
		tenants:  tenants,
		issues:   issues,
		detector: detector,
		runner:   runner,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		metrics:  metrics,
		// No janitor goroutine: the roster is one key, lazily evicted.
		roster: gocache.New(ttl, 0),
	}
}

// Run loops until ctx is canceled. Cancellation is graceful: the tenant
// being evaluated finishes its pass, remaining tenants are skipped, and
// Run returns nil.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("remediation worker started",
		logger.Duration("check_interval", w.cfg.CheckInterval.Std()))
	for {
		w.runCycle(ctx)
		select {
		case <-ctx.Done():
			w.log.Info("remediation worker stopped")
			return nil
		case <-time.After(w.cfg.CheckInterval.Std()):
		}
	}
}

// RunOnce executes a single cycle, used by the CLI's one-shot mode.
func (w *Worker) RunOnce(ctx context.Context) {
	w.runCycle(ctx)
}

func (w *Worker) runCycle(ctx context.Context) {
	started := time.Now()
	tenants, err := w.activeTenants(ctx)
	if err != nil {
		w.log.Error("failed to load tenant roster", logger.Error(err))
		return
	}

	var evaluated, opened, failed int
	for i := range tenants {
		// Shutdown stops starting new tenants; the in-flight one already
		// finished by the time we get here.
		if ctx.Err() != nil {
			w.log.Info("cycle interrupted by shutdown",
				logger.Int("evaluated", evaluated),
				logger.Int("remaining", len(tenants)-i))
			break
		}
		n, err := w.processTenant(ctx, &tenants[i])
		evaluated++
		opened += n
		if err != nil {
			failed++
			if w.metrics != nil {
				w.metrics.TenantFailuresTotal.Inc()
			}
			w.log.Error("tenant evaluation failed",
				logger.Uint64("tenant_id", uint64(tenants[i].ID)),
				logger.Error(err))
		}
	}

	w.cycles++
	if w.metrics != nil {
		w.metrics.CyclesTotal.Inc()
		w.metrics.CycleDuration.Observe(time.Since(started).Seconds())
	}
	if w.cfg.StatsEveryCycles > 0 && w.cycles%uint64(w.cfg.StatsEveryCycles) == 0 {
		w.log.Info("cycle stats",
			logger.Uint64("cycles", w.cycles),
			logger.Int("tenants", evaluated),
			logger.Int("issues_opened", opened),
			logger.Int("tenant_failures", failed),
			logger.Duration("duration", time.Since(started)))
	}
}

// processTenant runs detection and remediation for one tenant. It uses a
// context detached from shutdown so an in-flight pass can finish, bounded
// by tenantBudget.
func (w *Worker) processTenant(ctx context.Context, tenant *entities.Tenant) (opened int, err error) {
	tenantCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tenantBudget)
	defer cancel()

	issues, err := w.detector.DetectIssues(tenantCtx, tenant.ID)
	if err != nil {
		return 0, err
	}
	for i := range issues {
		issue := &issues[i]
		if w.metrics != nil {
			w.metrics.IssuesDetectedTotal.WithLabelValues(issue.IssueType).Inc()
		}
		w.notifier.IssueDetected(tenantCtx, tenant, issue)
		if tenant.AutomationLevel <= entities.AutomationNotifyOnly {
			continue
		}
		w.remediate(tenantCtx, tenant, issue)
	}
	return len(issues), nil
}

func (w *Worker) remediate(ctx context.Context, tenant *entities.Tenant, issue *entities.DetectedIssue) {
	result, err := w.runner.Execute(ctx, tenant, issue)
	if err != nil {
		if errors.Is(err, playbook.ErrNoPlaybook) {
			return
		}
		w.log.Error("playbook execution failed",
			logger.Uint64("tenant_id", uint64(tenant.ID)),
			logger.String("issue_type", issue.IssueType),
			logger.Error(err))
		w.notifier.FixFailed(ctx, tenant, issue)
		return
	}
	if w.metrics != nil {
		outcome := "failure"
		if result.Success {
			outcome = "success"
		}
		w.metrics.PlaybookRunsTotal.WithLabelValues(result.Playbook, outcome).Inc()
	}
	if !result.Success {
		w.notifier.FixFailed(ctx, tenant, issue)
		return
	}
	if err := w.issues.MarkAutoFixed(ctx, issue.ID); err != nil {
		w.log.Error("failed to mark issue auto-fixed",
			logger.Uint64("issue_id", uint64(issue.ID)),
			logger.Error(err))
	}
	w.notifier.FixApplied(ctx, tenant, issue, result)
}

// activeTenants returns the cached roster, reloading it when the cache
// entry expired.
func (w *Worker) activeTenants(ctx context.Context) ([]entities.Tenant, error) {
	if cached, ok := w.roster.Get(rosterCacheKey); ok {
		return cached.([]entities.Tenant), nil
	}
	tenants, err := w.tenants.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	w.roster.SetDefault(rosterCacheKey, tenants)
	return tenants, nil
}
