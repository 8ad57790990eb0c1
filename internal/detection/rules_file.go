package detection

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ruleFileEntry is the YAML shape of one rule override. Duration is a
// string like "5m" so operators do not write nanoseconds.
type ruleFileEntry struct {
	IssueType   string  `yaml:"issue_type"`
	Metric      string  `yaml:"metric"`
	Threshold   float64 `yaml:"threshold"`
	Operator    string  `yaml:"operator"`
	Duration    string  `yaml:"duration"`
	Severity    string  `yaml:"severity"`
	Description string  `yaml:"description"`
}

// LoadRulesFile reads rule overrides from a YAML file. Entries replace
// default rules with the same issue type and otherwise add new rules.
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var entries []ruleFileEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	rules := make([]Rule, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		rule := Rule{
			IssueType:   entry.IssueType,
			MetricName:  entry.Metric,
			Threshold:   entry.Threshold,
			Operator:    entry.Operator,
			Severity:    entry.Severity,
			Description: entry.Description,
		}
		if entry.Duration != "" {
			d, err := time.ParseDuration(entry.Duration)
			if err != nil {
				return nil, fmt.Errorf("rule %s has invalid duration %q: %w", entry.IssueType, entry.Duration, err)
			}
			rule.Duration = d
		}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// MergeRules overlays overrides onto base by issue type, keeping base order
// and appending overrides that introduce new issue types.
func MergeRules(base, overrides []Rule) []Rule {
	byType := make(map[string]Rule, len(overrides))
	for _, r := range overrides {
		byType[r.IssueType] = r
	}
	merged := make([]Rule, 0, len(base)+len(overrides))
	for _, r := range base {
		if override, ok := byType[r.IssueType]; ok {
			merged = append(merged, override)
			delete(byType, r.IssueType)
			continue
		}
		merged = append(merged, r)
	}
	for _, r := range overrides {
		if _, pending := byType[r.IssueType]; pending {
			merged = append(merged, r)
			delete(byType, r.IssueType)
		}
	}
	return merged
}
