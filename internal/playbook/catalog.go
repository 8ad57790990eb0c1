package playbook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hostwarden/hostwarden/internal/container"
	"github.com/hostwarden/hostwarden/internal/detection"
)

// Tenant platforms the catalog knows about.
const (
	PlatformWordPress = "wordpress"
	PlatformMagento   = "magento"
)

// Playbook names.
const (
	PlaybookMemoryRelief     = "memory_relief"
	PlaybookQueryRemediation = "query_remediation"
	PlaybookDiskRecovery     = "disk_recovery"
	PlaybookCacheRebuild     = "cache_rebuild"
	PlaybookOptimizePass     = "optimize_pass"
)

// longQueryIDsKey carries captured query IDs from the capture action to
// the kill action within one run.
const longQueryIDsKey = "long_query_ids"

// DefaultCatalog returns the automated playbooks keyed to detector issue
// types. Action order matters: sequences go from least to most invasive.
func DefaultCatalog() []*Playbook {
	return []*Playbook{
		{
			Name:       PlaybookMemoryRelief,
			IssueTypes: []string{detection.IssueHighMemory, detection.IssueCriticalMemory},
			Actions: []ActionSpec{
				{
					Name:        "flush_object_cache",
					Description: "Flush the application object cache",
					Safety:      SafetySafe,
					Timeout:     30 * time.Second,
					Run:         flushAppCache,
				},
				{
					Name:        "clear_transients",
					Description: "Delete expired WordPress transients",
					Safety:      SafetySafe,
					Platforms:   []string{PlatformWordPress},
					Timeout:     30 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runWeb(ctx, env, "wp", "transient", "delete", "--expired", "--allow-root")
					},
				},
				{
					Name:        "clear_sessions",
					Description: "Remove stale Magento session files",
					Safety:      SafetySafe,
					Platforms:   []string{PlatformMagento},
					Timeout:     30 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runWeb(ctx, env, "sh", "-c", "find var/session -type f -mmin +60 -delete")
					},
				},
				{
					Name:        "restart_php_fpm",
					Description: "Reload PHP-FPM to release leaked memory",
					Safety:      SafetyModerate,
					Condition:   memoryStillHigh,
					Timeout:     60 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runWeb(ctx, env, "sh", "-c", "kill -USR2 1")
					},
				},
			},
			Success: actionSucceeded("flush_object_cache"),
		},
		{
			Name:       PlaybookQueryRemediation,
			IssueTypes: []string{detection.IssueSlowQueries},
			Actions: []ActionSpec{
				{
					Name:        "capture_slow_queries",
					Description: "Snapshot long-running queries for the audit trail",
					Safety:      SafetySafe,
					Timeout:     30 * time.Second,
					Run:         captureSlowQueries,
				},
				{
					Name:        "kill_long_queries",
					Description: "Kill queries running longer than 30 seconds",
					Safety:      SafetyModerate,
					Condition:   hasLongQueries,
					Timeout:     30 * time.Second,
					Run:         killLongQueries,
				},
			},
			Success: actionSucceeded("capture_slow_queries"),
		},
		{
			Name:       PlaybookDiskRecovery,
			IssueTypes: []string{detection.IssueDiskFilling, detection.IssueDiskCritical},
			Actions: []ActionSpec{
				{
					Name:        "clear_old_logs",
					Description: "Delete rotated logs and oversized debug logs",
					Safety:      SafetySafe,
					Timeout:     60 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runWeb(ctx, env, "sh", "-c",
							"find /var/log -name '*.gz' -mtime +7 -delete; find /var/www/html -name 'debug.log' -size +50M -delete")
					},
				},
				{
					Name:        "clear_cache_dirs",
					Description: "Empty the platform file cache directories",
					Safety:      SafetySafe,
					Timeout:     60 * time.Second,
					Run:         clearCacheDirs,
				},
				{
					Name:        "clear_old_backups",
					Description: "Remove local backups older than three days",
					Safety:      SafetyAggressive,
					Condition:   diskCritical,
					Timeout:     120 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runWeb(ctx, env, "sh", "-c", "find /var/backups -name '*.tar.gz' -mtime +3 -delete")
					},
				},
			},
			Success: anySucceeded,
		},
		{
			Name:       PlaybookCacheRebuild,
			IssueTypes: []string{detection.IssueCacheMissStorm},
			Actions: []ActionSpec{
				{
					Name:        "capture_cache_stats",
					Description: "Record Redis keyspace statistics",
					Safety:      SafetySafe,
					Timeout:     15 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runRedis(ctx, env, "redis-cli", "INFO", "stats")
					},
				},
				{
					Name:        "restart_object_cache",
					Description: "Restart Redis to recover from eviction churn",
					Safety:      SafetyModerate,
					Condition:   hitRateStillLow,
					Timeout:     30 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runRedis(ctx, env, "sh", "-c", "redis-cli CONFIG RESETSTAT && redis-cli DEBUG RESTART || kill 1")
					},
				},
			},
			Success: anySucceeded,
		},
		{
			Name:       PlaybookOptimizePass,
			IssueTypes: []string{detection.IssueResponseDegradation, detection.IssueHighCPU},
			Actions: []ActionSpec{
				{
					Name:        "clear_app_cache",
					Description: "Flush the application object cache",
					Safety:      SafetySafe,
					Timeout:     30 * time.Second,
					Run:         flushAppCache,
				},
				{
					Name:        "restart_php_fpm",
					Description: "Reload PHP-FPM workers",
					Safety:      SafetyModerate,
					Timeout:     60 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runWeb(ctx, env, "sh", "-c", "kill -USR2 1")
					},
				},
			},
			Success: actionSucceeded("clear_app_cache"),
		},
	}
}

// runWeb executes a command in the tenant's web container, treating a
// non-zero exit as action failure.
func runWeb(ctx context.Context, env *Env, argv ...string) (string, error) {
	return runIn(ctx, env, container.WebWorkload(env.Tenant.ID), argv)
}

func dbWorkload(env *Env) string {
	return container.DBWorkload(env.Tenant.ID)
}

// runRedis executes a command in the tenant's Redis container.
func runRedis(ctx context.Context, env *Env, argv ...string) (string, error) {
	return runIn(ctx, env, container.RedisWorkload(env.Tenant.ID), argv)
}

func runIn(ctx context.Context, env *Env, workload string, argv []string) (string, error) {
	res, err := env.Exec.Run(ctx, workload, container.Command{Argv: argv})
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return res.Stdout, fmt.Errorf("command exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// flushAppCache clears the object cache with the platform's own tooling.
func flushAppCache(ctx context.Context, env *Env) (string, error) {
	switch env.Tenant.Platform {
	case PlatformMagento:
		return runWeb(ctx, env, "php", "bin/magento", "cache:flush")
	default:
		return runWeb(ctx, env, "wp", "cache", "flush", "--allow-root")
	}
}

// clearCacheDirs empties the platform's file cache directories.
func clearCacheDirs(ctx context.Context, env *Env) (string, error) {
	switch env.Tenant.Platform {
	case PlatformMagento:
		return runWeb(ctx, env, "sh", "-c", "rm -rf var/cache/* var/page_cache/*")
	default:
		return runWeb(ctx, env, "sh", "-c", "rm -rf wp-content/cache/*")
	}
}

// captureSlowQueries records long-running queries and stashes their IDs
// for the kill action.
func captureSlowQueries(ctx context.Context, env *Env) (string, error) {
	res, err := env.Exec.RunQuery(ctx, container.DBWorkload(env.Tenant.ID),
		"SELECT id, time, LEFT(info, 200) FROM information_schema.processlist WHERE command <> 'Sleep' AND time > 30", 0)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return res.Stdout, fmt.Errorf("query exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	env.State[longQueryIDsKey] = parseProcessIDs(res.Stdout)
	return res.Stdout, nil
}

// killLongQueries kills the queries captured earlier in the run.
func killLongQueries(ctx context.Context, env *Env) (string, error) {
	ids, _ := env.State[longQueryIDsKey].([]string)
	killed := 0
	var lastErr error
	for _, id := range ids {
		res, err := env.Exec.RunQuery(ctx, container.DBWorkload(env.Tenant.ID), "KILL "+id, 0)
		if err != nil {
			lastErr = err
			continue
		}
		if res.Success() {
			killed++
		}
	}
	if killed == 0 && lastErr != nil {
		return "", lastErr
	}
	return fmt.Sprintf("killed %d of %d queries", killed, len(ids)), nil
}

// parseProcessIDs extracts the ID column from mysql tabular output,
// skipping the header row.
func parseProcessIDs(out string) []string {
	var ids []string
	for i, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if i == 0 || line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 0 {
			ids = append(ids, fields[0])
		}
	}
	return ids
}

// memoryStillHigh re-probes memory before the invasive restart step.
func memoryStillHigh(ctx context.Context, env *Env) (bool, string) {
	value, ok := env.Probe(ctx, env.Tenant.ID, detection.MetricMemoryPercent)
	if !ok {
		return false, "no current memory reading"
	}
	if value <= 85 {
		return false, fmt.Sprintf("memory recovered to %.1f%%", value)
	}
	return true, ""
}

// hasLongQueries gates the kill step on the capture step's findings.
func hasLongQueries(_ context.Context, env *Env) (bool, string) {
	ids, _ := env.State[longQueryIDsKey].([]string)
	if len(ids) == 0 {
		return false, "no queries over 30s"
	}
	return true, ""
}

// diskCritical only deletes backups when disk usage is past the critical
// threshold.
func diskCritical(ctx context.Context, env *Env) (bool, string) {
	if env.Issue != nil && env.Issue.IssueType == detection.IssueDiskCritical {
		return true, ""
	}
	value, ok := env.Probe(ctx, env.Tenant.ID, detection.MetricDiskPercent)
	if !ok {
		return false, "no current disk reading"
	}
	if value <= 95 {
		return false, fmt.Sprintf("disk at %.1f%%, below critical", value)
	}
	return true, ""
}

// hitRateStillLow avoids restarting Redis when the miss storm has passed.
func hitRateStillLow(ctx context.Context, env *Env) (bool, string) {
	value, ok := env.Probe(ctx, env.Tenant.ID, detection.MetricRedisHitRate)
	if !ok {
		return false, "no current hit rate reading"
	}
	if value >= 50 {
		return false, fmt.Sprintf("hit rate recovered to %.1f%%", value)
	}
	return true, ""
}
