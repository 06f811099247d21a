package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/klartext/klartext/internal/store"
)

func newFragmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fragments",
		Short: "Inspect and manage stored fragments",
	}

	cmd.AddCommand(newFragmentsListCmd())
	cmd.AddCommand(newFragmentsDeleteCmd())
	cmd.AddCommand(newFragmentsIgnoreCmd())
	return cmd
}

func newFragmentsListCmd() *cobra.Command {
	var configPath, state, language string
	var desc bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fragments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFragmentsList(cmd, configPath, store.Filter{
				State:     state,
				Language:  language,
				OrderDesc: desc,
				Limit:     limit,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	cmd.Flags().StringVar(&state, "state", "", "filter by state (in_use, to_simplify)")
	cmd.Flags().StringVar(&language, "language", "", "filter by source language")
	cmd.Flags().BoolVar(&desc, "desc", false, "newest first")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func runFragmentsList(cmd *cobra.Command, configPath string, filter store.Filter) error {
	_, gormDB, err := openDatabase(configPath)
	if err != nil {
		return err
	}
	fragments, err := store.QueryFragments(gormDB, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLANG\tFIELD\tHTML\tIGNORED\tCREATED\tTEXT")
	for _, fragment := range fragments {
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%v\t%s\t%s\n",
			fragment.ID, fragment.SourceLanguage, fragment.FieldIdentifier,
			fragment.HTML, fragment.Ignored,
			fragment.CreatedAt.Format("2006-01-02"),
			truncateText(fragment.Content, 60))
	}
	return w.Flush()
}

func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func newFragmentsDeleteCmd() *cobra.Command {
	var configPath, language string

	cmd := &cobra.Command{
		Use:   "delete <fragment-id>",
		Short: "Delete a fragment, or just one of its simplifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("fragment id must be an integer: %q", args[0])
			}
			return runFragmentsDelete(cmd, configPath, uint(id), language)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	cmd.Flags().StringVarP(&language, "lang", "l", "", "delete only the simplification in this language")
	return cmd
}

func runFragmentsDelete(cmd *cobra.Command, configPath string, id uint, language string) error {
	out := cmd.OutOrStdout()
	_, gormDB, err := openDatabase(configPath)
	if err != nil {
		return err
	}

	if language != "" {
		if err := store.DeleteSimplification(gormDB, id, language); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %s simplification of fragment %d\n", language, id)
		return nil
	}

	if err := store.DeleteFragment(gormDB, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted fragment %d\n", id)
	return nil
}

func newFragmentsIgnoreCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ignore <fragment-id>",
		Short: "Permanently exclude a fragment from future runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("fragment id must be an integer: %q", args[0])
			}
			_, gormDB, err := openDatabase(configPath)
			if err != nil {
				return err
			}
			if err := store.SetIgnored(gormDB, uint(id), true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fragment %d ignored\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	return cmd
}
