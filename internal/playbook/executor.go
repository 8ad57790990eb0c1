package playbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hostwarden/hostwarden/internal/container"
	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/hostwarden/hostwarden/internal/datastore/repository"
	"github.com/hostwarden/hostwarden/internal/logger"
)

// ErrNoPlaybook means no playbook covers the issue type.
var ErrNoPlaybook = errors.New("no playbook for issue type")

// probeLookback bounds how old a snapshot a mid-run condition may rely on.
const probeLookback = 5 * time.Minute

// Executor runs automated playbooks for detected issues and writes the
// append-only action audit trail.
type Executor struct {
	containers container.Executor
	actionLog  repository.ActionLogRepository
	snapshots  repository.SnapshotRepository
	log        logger.Logger

	byIssueType map[string]*Playbook
	now         func() time.Time
}

// NewExecutor builds an Executor over the given catalog. Pass
// DefaultCatalog() for the standard playbooks.
func NewExecutor(containers container.Executor, actionLog repository.ActionLogRepository, snapshots repository.SnapshotRepository, catalog []*Playbook, log logger.Logger) *Executor {
	byType := make(map[string]*Playbook)
	for _, pb := range catalog {
		for _, t := range pb.IssueTypes {
			byType[t] = pb
		}
	}
	return &Executor{
		containers:  containers,
		actionLog:   actionLog,
		snapshots:   snapshots,
		log:         log,
		byIssueType: byType,
		now:         time.Now,
	}
}

// ForIssueType returns the playbook covering an issue type.
func (e *Executor) ForIssueType(issueType string) (*Playbook, bool) {
	pb, ok := e.byIssueType[issueType]
	return pb, ok
}

// Execute runs the playbook for the issue best effort: every action gets
// its chance, failures are recorded and the sequence continues. Actions
// above the tenant's automation level or with an unmet condition are
// recorded as skipped. Returns ErrNoPlaybook when the issue type has no
// playbook; any other outcome is a Result, not an error.
func (e *Executor) Execute(ctx context.Context, tenant *entities.Tenant, issue *entities.DetectedIssue) (*Result, error) {
	pb, ok := e.byIssueType[issue.IssueType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPlaybook, issue.IssueType)
	}
	env := &Env{
		Tenant: tenant,
		Issue:  issue,
		Exec:   e.containers,
		Log:    e.log,
		Probe:  e.probe,
		State:  make(map[string]any),
	}
	result := e.run(ctx, pb, env)
	e.audit(ctx, tenant.ID, &issue.ID, pb.Name, result)
	return result, nil
}

// run walks the action sequence. Shared by automated and operator runs.
func (e *Executor) run(ctx context.Context, pb *Playbook, env *Env) *Result {
	result := &Result{
		Playbook:  pb.Name,
		RunID:     uuid.NewString(),
		StartedAt: e.now(),
	}
	for i := range pb.Actions {
		action := &pb.Actions[i]
		ar := ActionResult{Name: action.Name}

		switch {
		case !action.appliesTo(env.Tenant.Platform):
			ar.Skipped = true
			ar.SkipReason = fmt.Sprintf("not applicable to %s", env.Tenant.Platform)
		case !SafetyAllowed(env.Tenant.AutomationLevel, action.Safety):
			ar.Skipped = true
			ar.SkipReason = fmt.Sprintf("%s actions disabled at automation level %d", action.Safety, env.Tenant.AutomationLevel)
		default:
			if action.Condition != nil {
				if run, reason := action.Condition(ctx, env); !run {
					ar.Skipped = true
					ar.SkipReason = reason
				}
			}
		}

		if !ar.Skipped {
			ar = e.runAction(ctx, action, env)
		}
		result.Actions = append(result.Actions, ar)
	}
	result.FinishedAt = e.now()
	if pb.Success != nil {
		result.Success = pb.Success(result.Actions)
	} else {
		result.Success = allExecutedSucceeded(result.Actions)
	}
	e.log.Info("playbook finished",
		logger.Uint64("tenant_id", uint64(env.Tenant.ID)),
		logger.String("playbook", pb.Name),
		logger.String("run_id", result.RunID),
		logger.Bool("success", result.Success))
	return result
}

func (e *Executor) runAction(ctx context.Context, action *ActionSpec, env *Env) ActionResult {
	ar := ActionResult{Name: action.Name}
	actionCtx := ctx
	if action.Timeout > 0 {
		var cancel context.CancelFunc
		actionCtx, cancel = context.WithTimeout(ctx, action.Timeout)
		defer cancel()
	}
	started := e.now()
	output, err := action.Run(actionCtx, env)
	ar.Duration = e.now().Sub(started)
	ar.Output = output
	if err != nil {
		ar.Error = err.Error()
		e.log.Warn("playbook action failed",
			logger.Uint64("tenant_id", uint64(env.Tenant.ID)),
			logger.String("action", action.Name),
			logger.Error(err))
		return ar
	}
	ar.Success = true
	return ar
}

// audit appends one row per executed action. Audit failures are logged and
// swallowed so bookkeeping never blocks remediation.
func (e *Executor) audit(ctx context.Context, tenantID uint, issueID *uint, playbookName string, result *Result) {
	for i := range result.Actions {
		ar := &result.Actions[i]
		if ar.Skipped {
			continue
		}
		payload, err := json.Marshal(map[string]any{
			"output":      ar.Output,
			"error":       ar.Error,
			"duration_ms": ar.Duration.Milliseconds(),
		})
		if err != nil {
			payload = []byte("{}")
		}
		row := &entities.AutomationAction{
			TenantID:     tenantID,
			IssueID:      issueID,
			RunID:        result.RunID,
			PlaybookName: playbookName,
			ActionName:   ar.Name,
			ExecutedAt:   e.now(),
			Success:      ar.Success,
			Result:       string(payload),
		}
		if err := e.actionLog.Append(ctx, row); err != nil {
			e.log.Error("failed to append action audit row",
				logger.Uint64("tenant_id", uint64(tenantID)),
				logger.String("action", ar.Name),
				logger.Error(err))
		}
	}
}

// probe reads the tenant's most recent value for a metric.
func (e *Executor) probe(ctx context.Context, tenantID uint, metric string) (float64, bool) {
	snapshot, err := e.snapshots.Latest(ctx, tenantID, e.now().Add(-probeLookback))
	if err != nil {
		return 0, false
	}
	return snapshot.Metric(metric)
}
