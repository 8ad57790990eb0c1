package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hostwarden/hostwarden/internal/conf"
	"github.com/hostwarden/hostwarden/internal/container"
	"github.com/hostwarden/hostwarden/internal/datastore"
	"github.com/hostwarden/hostwarden/internal/datastore/repository"
	"github.com/hostwarden/hostwarden/internal/playbook"
	"github.com/spf13/cobra"
)

func playbookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playbook",
		Short: "Operator playbook commands",
	}
	cmd.AddCommand(playbookRunCommand(), playbookListCommand())
	return cmd
}

func playbookRunCommand() *cobra.Command {
	var (
		tenantID   uint
		operatorID uint
		reason     string
	)
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run an operator playbook against a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := conf.Load(configPath)
			if err != nil {
				return err
			}
			log := newLogger(settings)

			db, err := datastore.Open(settings.Database)
			if err != nil {
				return err
			}
			tenants := repository.NewTenantRepository(db)
			snapshots := repository.NewSnapshotRepository(db)
			actionLog := repository.NewActionLogRepository(db)
			interventions := repository.NewInterventionRepository(db)

			exec, err := container.NewDockerExecutor(settings.Container.QueryTimeout.Std(), log)
			if err != nil {
				return err
			}
			auto := playbook.NewExecutor(exec, actionLog, snapshots, playbook.DefaultCatalog(), log)
			admin := playbook.NewAdminExecutor(auto, interventions, log)

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
			defer cancel()

			tenant, err := tenants.Get(ctx, tenantID)
			if err != nil {
				return err
			}
			result, err := admin.Run(ctx, operatorID, tenant, args[0], reason)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().UintVar(&tenantID, "tenant", 0, "tenant ID")
	cmd.Flags().UintVar(&operatorID, "operator", 0, "operator ID for the intervention record")
	cmd.Flags().StringVar(&reason, "reason", "", "why this playbook is being run")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func playbookListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List operator playbooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range []string{
				playbook.AdminOptimizeStore,
				playbook.AdminEmergencyStabilize,
				playbook.AdminClearCaches,
				playbook.AdminRestartServices,
			} {
				fmt.Println(name)
			}
			return nil
		},
	}
}
