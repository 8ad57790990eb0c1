package playbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/hostwarden/hostwarden/internal/datastore/repository"
	"github.com/hostwarden/hostwarden/internal/logger"
)

// ErrUnknownPlaybook means the requested operator playbook does not exist.
var ErrUnknownPlaybook = errors.New("unknown operator playbook")

// Operator playbook names.
const (
	AdminOptimizeStore      = "optimize_store"
	AdminEmergencyStabilize = "emergency_stabilize"
	AdminClearCaches        = "clear_caches"
	AdminRestartServices    = "restart_services"
)

// AdminExecutor runs operator-triggered playbooks. Runs are attributed to
// an operator and recorded as interventions, separate from the automated
// action log. Operator runs bypass the tenant's automation level; the
// operator's judgment replaces the gate.
type AdminExecutor struct {
	exec          *Executor
	interventions repository.InterventionRepository
	log           logger.Logger
	byName        map[string]*Playbook
}

// NewAdminExecutor wires the operator playbooks on top of the automated
// executor's action machinery.
func NewAdminExecutor(exec *Executor, interventions repository.InterventionRepository, log logger.Logger) *AdminExecutor {
	byName := make(map[string]*Playbook)
	for _, pb := range adminCatalog() {
		byName[pb.Name] = pb
	}
	return &AdminExecutor{exec: exec, interventions: interventions, log: log, byName: byName}
}

// Playbooks returns the available operator playbook names.
func (a *AdminExecutor) Playbooks() []string {
	names := make([]string, 0, len(a.byName))
	for name := range a.byName {
		names = append(names, name)
	}
	return names
}

// Run executes an operator playbook against a tenant and records the
// intervention. The returned Result mirrors automated runs.
func (a *AdminExecutor) Run(ctx context.Context, operatorID uint, tenant *entities.Tenant, playbookName, reason string) (*Result, error) {
	pb, ok := a.byName[playbookName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlaybook, playbookName)
	}

	// Lift the automation gate for the duration of the run without
	// touching the stored tenant record.
	elevated := *tenant
	elevated.AutomationLevel = entities.AutomationFull

	env := &Env{
		Tenant: &elevated,
		Exec:   a.exec.containers,
		Log:    a.log,
		Probe:  a.exec.probe,
		State:  make(map[string]any),
	}
	result := a.exec.run(ctx, pb, env)

	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte("{}")
	}
	intervention := &entities.AdminIntervention{
		TenantID:     tenant.ID,
		OperatorID:   operatorID,
		PlaybookName: pb.Name,
		Reason:       reason,
		ExecutedAt:   result.StartedAt,
		Success:      result.Success,
		Result:       string(payload),
	}
	if err := a.interventions.Record(ctx, intervention); err != nil {
		a.log.Error("failed to record admin intervention",
			logger.Uint64("tenant_id", uint64(tenant.ID)),
			logger.Uint64("operator_id", uint64(operatorID)),
			logger.Error(err))
	}
	return result, nil
}

// adminCatalog defines the operator playbooks. Each carries its own
// success policy; operators care about different outcomes per playbook.
func adminCatalog() []*Playbook {
	return []*Playbook{
		{
			Name: AdminOptimizeStore,
			Actions: []ActionSpec{
				{
					Name:        "flush_app_cache",
					Description: "Flush the application object cache",
					Safety:      SafetySafe,
					Timeout:     30 * time.Second,
					Run:         flushAppCache,
				},
				{
					Name:        "reindex",
					Description: "Rebuild Magento indexes",
					Safety:      SafetyModerate,
					Platforms:   []string{PlatformMagento},
					Timeout:     300 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runWeb(ctx, env, "php", "bin/magento", "indexer:reindex")
					},
				},
				{
					Name:        "optimize_tables",
					Description: "Run OPTIMIZE TABLE over the largest tables",
					Safety:      SafetyModerate,
					Timeout:     300 * time.Second,
					Run:         optimizeTables,
				},
				{
					Name:        "clear_cache_dirs",
					Description: "Empty the platform file cache directories",
					Safety:      SafetySafe,
					Timeout:     60 * time.Second,
					Run:         clearCacheDirs,
				},
			},
			Success: allExecutedSucceeded,
		},
		{
			Name: AdminEmergencyStabilize,
			Actions: []ActionSpec{
				{
					Name:        "kill_long_queries",
					Description: "Kill every query running longer than 30 seconds",
					Safety:      SafetyAggressive,
					Timeout:     30 * time.Second,
					Run:         killAllLongQueries,
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
				{
					Name:        "flush_object_cache",
					Description: "Flush the application object cache",
					Safety:      SafetySafe,
					Timeout:     30 * time.Second,
					Run:         flushAppCache,
				},
			},
			// Stabilization counts if the query kill landed or any later
			// step brought relief.
			Success: anySucceeded,
		},
		{
			Name: AdminClearCaches,
			Actions: []ActionSpec{
				{
					Name:        "flush_app_cache",
					Description: "Flush the application object cache",
					Safety:      SafetySafe,
					Timeout:     30 * time.Second,
					Run:         flushAppCache,
				},
				{
					Name:        "clear_cache_dirs",
					Description: "Empty the platform file cache directories",
					Safety:      SafetySafe,
					Timeout:     60 * time.Second,
					Run:         clearCacheDirs,
				},
			},
			Success: actionSucceeded("flush_app_cache"),
		},
		{
			Name: AdminRestartServices,
			Actions: []ActionSpec{
				{
					Name:        "restart_php_fpm",
					Description: "Reload PHP-FPM workers",
					Safety:      SafetyModerate,
					Timeout:     60 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runWeb(ctx, env, "sh", "-c", "kill -USR2 1")
					},
				},
				{
					Name:        "restart_object_cache",
					Description: "Restart Redis",
					Safety:      SafetyModerate,
					Timeout:     30 * time.Second,
					Run: func(ctx context.Context, env *Env) (string, error) {
						return runRedis(ctx, env, "sh", "-c", "redis-cli DEBUG RESTART || kill 1")
					},
				},
			},
			Success: actionSucceeded("restart_php_fpm"),
		},
	}
}

// killAllLongQueries captures and kills in one step; the emergency path
// does not wait for a separate capture action.
func killAllLongQueries(ctx context.Context, env *Env) (string, error) {
	if _, err := captureSlowQueries(ctx, env); err != nil {
		return "", err
	}
	return killLongQueries(ctx, env)
}

// optimizeTables runs OPTIMIZE TABLE over the ten largest tables.
func optimizeTables(ctx context.Context, env *Env) (string, error) {
	out, err := captureTableList(ctx, env)
	if err != nil {
		return "", err
	}
	tables := parseProcessIDs(out)
	optimized := 0
	for _, table := range tables {
		res, err := env.Exec.RunQuery(ctx, dbWorkload(env), "OPTIMIZE TABLE `"+table+"`", 0)
		if err == nil && res.Success() {
			optimized++
		}
	}
	return fmt.Sprintf("optimized %d of %d tables", optimized, len(tables)), nil
}

func captureTableList(ctx context.Context, env *Env) (string, error) {
	res, err := env.Exec.RunQuery(ctx, dbWorkload(env),
		"SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY data_length DESC LIMIT 10", 0)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", fmt.Errorf("query exited %d", res.ExitCode)
	}
	return res.Stdout, nil
}
