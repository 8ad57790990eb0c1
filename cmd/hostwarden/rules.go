package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hostwarden/hostwarden/internal/conf"
	"github.com/spf13/cobra"
)

func rulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Detection rule commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the effective detection rule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := conf.Load(configPath)
			if err != nil {
				return err
			}
			rules, err := loadRules(settings)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ISSUE TYPE\tMETRIC\tCONDITION\tWINDOW\tSEVERITY")
			for i := range rules {
				r := &rules[i]
				window := "instant"
				if !r.Instant() {
					window = r.Duration.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s %g\t%s\t%s\n",
					r.IssueType, r.MetricName, r.Operator, r.Threshold, window, r.Severity)
			}
			return w.Flush()
		},
	})
	return cmd
}
