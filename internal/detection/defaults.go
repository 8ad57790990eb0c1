package detection

import "time"

// Issue types produced by the default rule set.
const (
	IssueHighMemory          = "high_memory"
	IssueCriticalMemory      = "critical_memory"
	IssueHighCPU             = "high_cpu"
	IssueSlowQueries         = "slow_queries"
	IssueCacheMissStorm      = "cache_miss_storm"
	IssueDiskFilling         = "disk_filling"
	IssueDiskCritical        = "disk_critical"
	IssueResponseDegradation = "response_degradation"
)

// Metric names the default rules read. The collector may report more.
const (
	MetricMemoryPercent  = "memory_percent"
	MetricCPUPercent     = "cpu_percent"
	MetricSlowQueryCount = "slow_query_count"
	MetricRedisHitRate   = "redis_hit_rate"
	MetricDiskPercent    = "disk_percent"
	MetricTTFBMs         = "ttfb_ms"
)

// DefaultRules returns the built-in rule set. Callers receive a fresh slice
// they may modify.
func DefaultRules() []Rule {
	return []Rule{
		{
			IssueType:   IssueHighMemory,
			MetricName:  MetricMemoryPercent,
			Threshold:   85,
			Operator:    OperatorGreaterThan,
			Duration:    5 * time.Minute,
			Severity:    "warning",
			Description: "Memory usage above 85% for 5 minutes",
		},
		{
			IssueType:   IssueCriticalMemory,
			MetricName:  MetricMemoryPercent,
			Threshold:   95,
			Operator:    OperatorGreaterThan,
			Duration:    2 * time.Minute,
			Severity:    "critical",
			Description: "Memory usage above 95% for 2 minutes",
		},
		{
			IssueType:   IssueHighCPU,
			MetricName:  MetricCPUPercent,
			Threshold:   90,
			Operator:    OperatorGreaterThan,
			Duration:    10 * time.Minute,
			Severity:    "warning",
			Description: "CPU usage above 90% for 10 minutes",
		},
		{
			IssueType:   IssueSlowQueries,
			MetricName:  MetricSlowQueryCount,
			Threshold:   5,
			Operator:    OperatorGreaterThan,
			Duration:    5 * time.Minute,
			Severity:    "warning",
			Description: "More than 5 slow queries sustained for 5 minutes",
		},
		{
			IssueType:   IssueCacheMissStorm,
			MetricName:  MetricRedisHitRate,
			Threshold:   50,
			Operator:    OperatorLessThan,
			Duration:    10 * time.Minute,
			Severity:    "warning",
			Description: "Redis hit rate below 50% for 10 minutes",
		},
		{
			IssueType:   IssueDiskFilling,
			MetricName:  MetricDiskPercent,
			Threshold:   90,
			Operator:    OperatorGreaterThan,
			Severity:    "warning",
			Description: "Disk usage above 90%",
		},
		{
			IssueType:   IssueDiskCritical,
			MetricName:  MetricDiskPercent,
			Threshold:   95,
			Operator:    OperatorGreaterThan,
			Severity:    "critical",
			Description: "Disk usage above 95%",
		},
		{
			IssueType:   IssueResponseDegradation,
			MetricName:  MetricTTFBMs,
			Threshold:   3000,
			Operator:    OperatorGreaterThan,
			Duration:    5 * time.Minute,
			Severity:    "warning",
			Description: "Time to first byte above 3s for 5 minutes",
		},
	}
}
