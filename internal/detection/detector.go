package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/hostwarden/hostwarden/internal/datastore/repository"
	"github.com/hostwarden/hostwarden/internal/logger"
)

// instantLookbackIntervals bounds how old a snapshot may be and still
// trigger an instant rule. Without it a stalled collector would keep an
// instant issue alive on stale data forever.
const instantLookbackIntervals = 5

// Config tunes window evaluation.
type Config struct {
	// SnapshotInterval is the expected collector cadence.
	SnapshotInterval time.Duration
	// MinSampleRatio is the fraction of expected samples a sustained rule
	// needs before it may fire. Values outside (0, 1] fall back to 0.5.
	MinSampleRatio float64
}

// Detector owns a rule set and evaluates one tenant at a time against it.
type Detector struct {
	snapshots repository.SnapshotRepository
	issues    repository.IssueRepository
	log       logger.Logger
	cfg       Config

	rules   map[string]Rule
	rulesMu sync.RWMutex

	// writeMu serializes open/resolve transitions so the one-open-issue-
	// per-(tenant, type) check stays atomic.
	writeMu sync.Mutex

	onResolved func(ctx context.Context, issue *entities.DetectedIssue)

	now func() time.Time
}

// NewDetector creates a Detector preloaded with rules. Pass DefaultRules()
// for the standard set.
func NewDetector(snapshots repository.SnapshotRepository, issues repository.IssueRepository, rules []Rule, cfg Config, log logger.Logger) *Detector {
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = time.Minute
	}
	if cfg.MinSampleRatio <= 0 || cfg.MinSampleRatio > 1 {
		cfg.MinSampleRatio = 0.5
	}
	d := &Detector{
		snapshots: snapshots,
		issues:    issues,
		log:       log,
		cfg:       cfg,
		rules:     make(map[string]Rule, len(rules)),
		now:       time.Now,
	}
	for _, r := range rules {
		d.rules[r.IssueType] = r
	}
	return d
}

// OnResolved installs a callback invoked after an issue auto-resolves. The
// callback must not block; it runs inside the detection pass.
func (d *Detector) OnResolved(fn func(ctx context.Context, issue *entities.DetectedIssue)) {
	d.onResolved = fn
}

// AddRule validates and installs a rule, replacing any existing rule for
// the same issue type.
func (d *Detector) AddRule(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	d.rulesMu.Lock()
	d.rules[rule.IssueType] = rule
	d.rulesMu.Unlock()
	return nil
}

// RemoveRule deletes the rule for an issue type, reporting whether it
// existed.
func (d *Detector) RemoveRule(issueType string) bool {
	d.rulesMu.Lock()
	defer d.rulesMu.Unlock()
	_, ok := d.rules[issueType]
	delete(d.rules, issueType)
	return ok
}

// GetRule returns the rule for an issue type.
func (d *Detector) GetRule(issueType string) (Rule, bool) {
	d.rulesMu.RLock()
	defer d.rulesMu.RUnlock()
	r, ok := d.rules[issueType]
	return r, ok
}

// Rules returns the current rule set sorted by issue type.
func (d *Detector) Rules() []Rule {
	d.rulesMu.RLock()
	defer d.rulesMu.RUnlock()
	out := make([]Rule, 0, len(d.rules))
	for _, r := range d.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueType < out[j].IssueType })
	return out
}

// DetectIssues evaluates every rule for one tenant and returns the issues
// newly opened by this call. A rule that fires while an issue of its type
// is already open records nothing. Open issues whose condition has cleared
// are resolved. A tenant with no snapshots yields no issues and no error.
func (d *Detector) DetectIssues(ctx context.Context, tenantID uint) ([]entities.DetectedIssue, error) {
	rules := d.Rules()
	now := d.now()

	var created []entities.DetectedIssue
	for i := range rules {
		rule := &rules[i]
		fired, details, err := d.evaluate(ctx, tenantID, rule, now)
		if err != nil {
			d.log.Error("rule evaluation failed",
				logger.Uint64("tenant_id", uint64(tenantID)),
				logger.String("issue_type", rule.IssueType),
				logger.Error(err))
			continue
		}
		if !fired {
			continue
		}
		issue, err := d.openIssue(ctx, tenantID, rule, details, now)
		if err != nil {
			d.log.Error("failed to open issue",
				logger.Uint64("tenant_id", uint64(tenantID)),
				logger.String("issue_type", rule.IssueType),
				logger.Error(err))
			continue
		}
		if issue != nil {
			created = append(created, *issue)
		}
	}

	d.resolveCleared(ctx, tenantID, now)
	return created, nil
}

// evaluate checks one rule against the tenant's snapshots.
func (d *Detector) evaluate(ctx context.Context, tenantID uint, rule *Rule, now time.Time) (bool, *issueDetails, error) {
	if rule.Instant() {
		return d.evaluateInstant(ctx, tenantID, rule, now)
	}
	return d.evaluateSustained(ctx, tenantID, rule, now)
}

func (d *Detector) evaluateInstant(ctx context.Context, tenantID uint, rule *Rule, now time.Time) (bool, *issueDetails, error) {
	notBefore := now.Add(-time.Duration(instantLookbackIntervals) * d.cfg.SnapshotInterval)
	snapshot, err := d.snapshots.Latest(ctx, tenantID, notBefore)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}
	value, ok := snapshot.Metric(rule.MetricName)
	if !ok {
		return false, nil, nil
	}
	if !rule.Satisfied(value) {
		return false, nil, nil
	}
	return true, &issueDetails{
		Metric:      rule.MetricName,
		Current:     value,
		Threshold:   rule.Threshold,
		Operator:    rule.Operator,
		SampleCount: 1,
		Min:         value,
		Max:         value,
		Average:     value,
	}, nil
}

func (d *Detector) evaluateSustained(ctx context.Context, tenantID uint, rule *Rule, now time.Time) (bool, *issueDetails, error) {
	window, err := d.snapshots.Window(ctx, tenantID, now.Add(-rule.Duration), now)
	if err != nil {
		return false, nil, err
	}

	// Samples missing the metric do not count for or against the rule.
	values := make([]float64, 0, len(window))
	for i := range window {
		if v, ok := window[i].Metric(rule.MetricName); ok {
			values = append(values, v)
		}
	}

	expected := int(rule.Duration / d.cfg.SnapshotInterval)
	minSamples := int(float64(expected) * d.cfg.MinSampleRatio)
	if minSamples < 1 {
		minSamples = 1
	}
	if len(values) < minSamples {
		return false, nil, nil
	}

	// Sustained means every retained sample satisfies the condition. One
	// recovered sample inside the window vetoes the rule.
	details := &issueDetails{
		Metric:          rule.MetricName,
		Threshold:       rule.Threshold,
		Operator:        rule.Operator,
		DurationSeconds: int(rule.Duration.Seconds()),
		SampleCount:     len(values),
		Min:             values[0],
		Max:             values[0],
	}
	var sum float64
	for _, v := range values {
		if !rule.Satisfied(v) {
			return false, nil, nil
		}
		sum += v
		if v < details.Min {
			details.Min = v
		}
		if v > details.Max {
			details.Max = v
		}
	}
	details.Current = values[len(values)-1]
	details.Average = sum / float64(len(values))
	return true, details, nil
}

// openIssue creates the issue unless one of its type is already open.
// Returns nil, nil when deduplicated.
func (d *Detector) openIssue(ctx context.Context, tenantID uint, rule *Rule, details *issueDetails, now time.Time) (*entities.DetectedIssue, error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	_, err := d.issues.FindOpen(ctx, tenantID, rule.IssueType)
	switch {
	case err == nil:
		return nil, nil
	case !errors.Is(err, repository.ErrIssueNotFound):
		return nil, err
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal issue details: %w", err)
	}
	issue := &entities.DetectedIssue{
		TenantID:   tenantID,
		IssueType:  rule.IssueType,
		Severity:   rule.Severity,
		DetectedAt: now,
		Details:    string(detailsJSON),
	}
	if err := d.issues.Create(ctx, issue); err != nil {
		return nil, err
	}
	d.log.Info("issue detected",
		logger.Uint64("tenant_id", uint64(tenantID)),
		logger.String("issue_type", rule.IssueType),
		logger.String("severity", rule.Severity),
		logger.Float64("value", details.Current))
	return issue, nil
}

// resolveCleared closes open issues whose rule condition no longer holds on
// the latest sample. Issues without a matching rule or a current metric
// value stay open.
func (d *Detector) resolveCleared(ctx context.Context, tenantID uint, now time.Time) {
	open, err := d.issues.ListOpen(ctx, tenantID)
	if err != nil {
		d.log.Error("failed to list open issues",
			logger.Uint64("tenant_id", uint64(tenantID)),
			logger.Error(err))
		return
	}
	if len(open) == 0 {
		return
	}

	notBefore := now.Add(-time.Duration(instantLookbackIntervals) * d.cfg.SnapshotInterval)
	snapshot, err := d.snapshots.Latest(ctx, tenantID, notBefore)
	if err != nil {
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			d.log.Error("failed to load latest snapshot for resolution",
				logger.Uint64("tenant_id", uint64(tenantID)),
				logger.Error(err))
		}
		return
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	for i := range open {
		issue := &open[i]
		rule, ok := d.GetRule(issue.IssueType)
		if !ok {
			continue
		}
		value, ok := snapshot.Metric(rule.MetricName)
		if !ok || rule.Satisfied(value) {
			continue
		}
		if err := d.issues.Resolve(ctx, issue.ID, now); err != nil {
			d.log.Error("failed to resolve issue",
				logger.Uint64("issue_id", uint64(issue.ID)),
				logger.Error(err))
			continue
		}
		d.log.Info("issue resolved",
			logger.Uint64("tenant_id", uint64(tenantID)),
			logger.String("issue_type", issue.IssueType),
			logger.Float64("value", value))
		if d.onResolved != nil {
			resolved := *issue
			resolved.ResolvedAt = &now
			d.onResolved(ctx, &resolved)
		}
	}
}

// issueDetails is the JSON payload stored in DetectedIssue.Details.
type issueDetails struct {
	Metric          string  `json:"metric"`
	Current         float64 `json:"current"`
	Threshold       float64 `json:"threshold"`
	Operator        string  `json:"operator"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
	SampleCount     int     `json:"sample_count"`
	Average         float64 `json:"average"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
}
