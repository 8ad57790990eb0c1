// Package playbook maps detected issue types to remediation action
// sequences and runs them best effort inside tenant workloads.
package playbook

import (
	"context"
	"time"

	"github.com/hostwarden/hostwarden/internal/container"
	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/hostwarden/hostwarden/internal/logger"
)

// Action safety levels. A tenant's automation level caps which safeties
// run: level 2 allows safe and moderate, level 3 also allows aggressive.
const (
	SafetySafe       = "safe"
	SafetyModerate   = "moderate"
	SafetyAggressive = "aggressive"
)

// SafetyAllowed reports whether an action of the given safety may run at
// the tenant's automation level. Level 1 tenants never execute actions.
func SafetyAllowed(automationLevel int, safety string) bool {
	switch automationLevel {
	case entities.AutomationFull:
		return true
	case entities.AutomationStandard:
		return safety == SafetySafe || safety == SafetyModerate
	default:
		return false
	}
}

// Env is the runtime context handed to actions and conditions.
type Env struct {
	Tenant *entities.Tenant
	// Issue is nil for operator-triggered runs.
	Issue *entities.DetectedIssue
	Exec  container.Executor
	Log   logger.Logger
	// Probe reads a tenant's most recent metric value, reporting whether
	// one is available. Conditions use it to re-check state mid-run.
	Probe func(ctx context.Context, tenantID uint, metric string) (float64, bool)
	// State carries values between actions of one run, e.g. a captured
	// slow-query count consumed by a later kill condition.
	State map[string]any
}

// ActionFunc performs one remediation step and returns human-readable
// output. A returned error marks the action failed; the sequence continues.
type ActionFunc func(ctx context.Context, env *Env) (string, error)

// ConditionFunc decides whether a conditional action should run. The
// string explains a false result and lands in the audit trail.
type ConditionFunc func(ctx context.Context, env *Env) (bool, string)

// ActionSpec is one entry in a playbook's sequence.
type ActionSpec struct {
	Name        string
	Description string
	Safety      string
	// Platforms restricts the action to the named tenant platforms.
	// Empty means all platforms.
	Platforms []string
	// Condition gates the action at runtime. Nil means always run.
	Condition ConditionFunc
	// Timeout bounds the action. Zero uses the executor default.
	Timeout time.Duration
	Run     ActionFunc
}

// appliesTo reports whether the action runs on the tenant's platform.
func (a *ActionSpec) appliesTo(platform string) bool {
	if len(a.Platforms) == 0 {
		return true
	}
	for _, p := range a.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// ActionResult records one action's outcome within a run.
type ActionResult struct {
	Name       string        `json:"name"`
	Success    bool          `json:"success"`
	Skipped    bool          `json:"skipped"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Output     string        `json:"output,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Result is the outcome of one playbook run. Success follows the
// playbook's own policy, not a blanket all-actions-succeeded rule.
type Result struct {
	Playbook   string         `json:"playbook"`
	RunID      string         `json:"run_id"`
	Success    bool           `json:"success"`
	Actions    []ActionResult `json:"actions"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// SuccessPolicy derives a run's overall success from its action results.
type SuccessPolicy func(actions []ActionResult) bool

// Playbook is an ordered action sequence for a set of issue types.
type Playbook struct {
	Name       string
	IssueTypes []string
	Actions    []ActionSpec
	Success    SuccessPolicy
}

// actionSucceeded is a policy keyed on one named action.
func actionSucceeded(name string) SuccessPolicy {
	return func(actions []ActionResult) bool {
		for i := range actions {
			if actions[i].Name == name {
				return actions[i].Success
			}
		}
		return false
	}
}

// anySucceeded passes when at least one executed action succeeded.
func anySucceeded(actions []ActionResult) bool {
	for i := range actions {
		if actions[i].Success {
			return true
		}
	}
	return false
}

// allExecutedSucceeded passes when every non-skipped action succeeded and
// at least one action actually ran.
func allExecutedSucceeded(actions []ActionResult) bool {
	ran := false
	for i := range actions {
		if actions[i].Skipped {
			continue
		}
		ran = true
		if !actions[i].Success {
			return false
		}
	}
	return ran
}
