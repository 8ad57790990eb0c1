package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hostwarden/hostwarden/internal/conf"
	"github.com/hostwarden/hostwarden/internal/container"
	"github.com/hostwarden/hostwarden/internal/datastore"
	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/hostwarden/hostwarden/internal/datastore/repository"
	"github.com/hostwarden/hostwarden/internal/detection"
	"github.com/hostwarden/hostwarden/internal/logger"
	"github.com/hostwarden/hostwarden/internal/notify"
	"github.com/hostwarden/hostwarden/internal/playbook"
	"github.com/hostwarden/hostwarden/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func workerCommand() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the detection and remediation loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}

func runWorker(once bool) error {
	settings, err := conf.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(settings)

	if !settings.Worker.Enabled {
		log.Info("worker disabled by configuration, exiting")
		return nil
	}

	db, err := datastore.Open(settings.Database)
	if err != nil {
		return err
	}

	tenants := repository.NewTenantRepository(db)
	snapshots := repository.NewSnapshotRepository(db)
	issues := repository.NewIssueRepository(db)
	actionLog := repository.NewActionLogRepository(db)
	notifications := repository.NewNotificationRepository(db)

	rules, err := loadRules(settings)
	if err != nil {
		return err
	}
	detector := detection.NewDetector(snapshots, issues, rules, detection.Config{
		SnapshotInterval: settings.Worker.SnapshotInterval.Std(),
		MinSampleRatio:   settings.Detection.MinSampleRatio,
	}, log)

	exec, err := container.NewDockerExecutor(settings.Container.QueryTimeout.Std(), log)
	if err != nil {
		return err
	}
	runner := playbook.NewExecutor(exec, actionLog, snapshots, playbook.DefaultCatalog(), log)

	var push *notify.PushSender
	if len(settings.Notify.PushURLs) > 0 {
		push, err = notify.NewPushSender(settings.Notify.PushURLs, 30*time.Second)
		if err != nil {
			return err
		}
	}
	notifier := notify.NewService(notifications, push, log)
	detector.OnResolved(func(ctx context.Context, issue *entities.DetectedIssue) {
		tenant, err := tenants.Get(ctx, issue.TenantID)
		if err != nil {
			log.Error("failed to load tenant for resolution notice", logger.Error(err))
			return
		}
		notifier.IssueResolved(ctx, tenant, issue)
	})

	var metrics *worker.Metrics
	if settings.Metrics.ListenAddr != "" {
		registry := prometheus.NewRegistry()
		metrics = worker.NewMetrics(registry)
		go serveMetrics(settings.Metrics.ListenAddr, registry, log)
	}

	w := worker.New(tenants, issues, detector, runner, notifier, settings.Worker, metrics, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		w.RunOnce(ctx)
		return nil
	}
	return w.Run(ctx)
}

func newLogger(settings *conf.Settings) logger.Logger {
	return logger.NewSlogLogger(os.Stderr, logger.ParseLevel(settings.LogLevel), &logger.Options{
		JSON: settings.LogJSON,
	})
}

func loadRules(settings *conf.Settings) ([]detection.Rule, error) {
	rules := detection.DefaultRules()
	if settings.Detection.RulesFile == "" {
		return rules, nil
	}
	overrides, err := detection.LoadRulesFile(settings.Detection.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules overrides: %w", err)
	}
	return detection.MergeRules(rules, overrides), nil
}

func serveMetrics(addr string, registry *prometheus.Registry, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info("metrics endpoint listening", logger.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server failed", logger.Error(err))
	}
}
