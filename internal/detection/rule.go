// Package detection evaluates tenant performance snapshots against a rule
// set and maintains the open-issue ledger: at most one open issue exists
// per tenant and issue type, and issues auto-resolve once their condition
// clears.
package detection

import (
	"fmt"
	"time"
)

// Comparison operators. Thresholds are numeric; equality operators are
// intentionally not supported.
const (
	OperatorGreaterThan    = ">"
	OperatorGreaterOrEqual = ">="
	OperatorLessThan       = "<"
	OperatorLessOrEqual    = "<="
)

// Rule describes one detection condition. Duration zero makes the rule
// instant (latest sample only); a positive Duration requires the condition
// to hold across the whole window.
type Rule struct {
	IssueType   string        `yaml:"issue_type"`
	MetricName  string        `yaml:"metric"`
	Threshold   float64       `yaml:"threshold"`
	Operator    string        `yaml:"operator"`
	Duration    time.Duration `yaml:"duration"`
	Severity    string        `yaml:"severity"`
	Description string        `yaml:"description"`
}

// Instant reports whether the rule fires on a single sample.
func (r *Rule) Instant() bool {
	return r.Duration <= 0
}

// Validate rejects rules the detector cannot evaluate.
func (r *Rule) Validate() error {
	if r.IssueType == "" {
		return fmt.Errorf("rule is missing an issue type")
	}
	if r.MetricName == "" {
		return fmt.Errorf("rule %s is missing a metric name", r.IssueType)
	}
	switch r.Operator {
	case OperatorGreaterThan, OperatorGreaterOrEqual, OperatorLessThan, OperatorLessOrEqual:
	default:
		return fmt.Errorf("rule %s has unsupported operator %q", r.IssueType, r.Operator)
	}
	switch r.Severity {
	case "info", "warning", "critical":
	default:
		return fmt.Errorf("rule %s has unknown severity %q", r.IssueType, r.Severity)
	}
	return nil
}

// Satisfied applies the rule's comparison to one value.
func (r *Rule) Satisfied(value float64) bool {
	switch r.Operator {
	case OperatorGreaterThan:
		return value > r.Threshold
	case OperatorGreaterOrEqual:
		return value >= r.Threshold
	case OperatorLessThan:
		return value < r.Threshold
	case OperatorLessOrEqual:
		return value <= r.Threshold
	default:
		return false
	}
}
