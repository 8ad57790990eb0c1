// hostwarden is the automated performance remediation service for the
// hosting platform: it watches tenant performance snapshots, opens issues,
// and runs tiered remediation playbooks inside tenant workloads.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "hostwarden",
		Short:         "Automated performance remediation for hosted tenants",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (env vars take precedence)")
	root.AddCommand(workerCommand())
	root.AddCommand(playbookCommand())
	root.AddCommand(rulesCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
