package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klartext/klartext/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Klartext database",
		Long:  "Creates or migrates all tables and seeds the usage counters for the configured providers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := openDatabase(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to %s database\n", cfg.Database.Driver)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintln(out, "Tables migrated")

	names := append([]string{"noop"}, cfg.APINames()...)
	if err := db.SeedUsage(gormDB, names); err != nil {
		return err
	}
	fmt.Fprintf(out, "Usage counters seeded for %s\n", strings.Join(names, ", "))
	return nil
}

func newDBResetCmd() *cobra.Command {
	var configPath string
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored fragments, simplifications and runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, yes bool) error {
	out := cmd.OutOrStdout()

	if !yes {
		fmt.Fprint(out, "This deletes ALL simplification data. Continue? [y/N] ")
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			fmt.Fprintln(out, "Aborted")
			return nil
		}
	}

	_, gormDB, err := openDatabase(configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	for _, model := range db.AllModels() {
		if err := gormDB.Where("1 = 1").Delete(model).Error; err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	fmt.Fprintln(out, "Database reset")
	return nil
}
