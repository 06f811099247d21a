package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/klartext/klartext/internal/quota"
)

func newQuotaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show or reset provider character usage",
	}

	cmd.AddCommand(newQuotaShowCmd())
	cmd.AddCommand(newQuotaResetCmd())
	return cmd
}

func newQuotaShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show character usage per provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuotaShow(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	return cmd
}

func runQuotaShow(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := openDatabase(configPath)
	if err != nil {
		return err
	}
	tracker := quota.NewTracker(gormDB, cfg)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "API\tSPENT\tLIMIT")
	for _, name := range cfg.APINames() {
		usage, err := tracker.Usage(name)
		if err != nil {
			return err
		}
		limit := "unlimited"
		if usage.Limit > 0 {
			limit = fmt.Sprintf("%d", usage.Limit)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, usage.Spent, limit)
	}
	return w.Flush()
}

func newQuotaResetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reset <api>",
		Short: "Reset a provider's usage counter to zero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := openDatabase(configPath)
			if err != nil {
				return err
			}
			tracker := quota.NewTracker(gormDB, cfg)
			if err := tracker.Reset(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Usage counter for %s reset\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	return cmd
}
