package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/quota"
	"github.com/klartext/klartext/internal/run"
	"github.com/klartext/klartext/internal/store"
)

func newSimplifyCmd() *cobra.Command {
	var configPath, objectType, targetLanguage, apiName string
	var objectID, blogID uint
	var batch int
	var queued bool

	cmd := &cobra.Command{
		Use:   "simplify",
		Short: "Run a simplification for one object end to end",
		Long:  "Starts a run for the object's pending fragments and ticks it to completion, printing progress per tick.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimplify(cmd, simplifyFlags{
				configPath:     configPath,
				object:         store.ObjectRef{ObjectID: objectID, ObjectType: objectType, BlogID: blogID},
				targetLanguage: targetLanguage,
				apiName:        apiName,
				batch:          batch,
				queued:         queued,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	cmd.Flags().UintVar(&objectID, "object-id", 0, "object ID")
	cmd.Flags().StringVar(&objectType, "object-type", "post", "object type (post, term)")
	cmd.Flags().UintVar(&blogID, "blog-id", 0, "blog scope for multi-site setups")
	cmd.Flags().StringVarP(&targetLanguage, "lang", "l", "", "target language")
	cmd.Flags().StringVarP(&apiName, "api", "a", config.APINoOp, "provider to use (summ_ai, capito, chatgpt, noop)")
	cmd.Flags().IntVar(&batch, "batch", run.DefaultMaxItemsPerTick, "fragments per tick")
	cmd.Flags().BoolVar(&queued, "queued", false, "queue for background processing instead of running now")
	cmd.MarkFlagRequired("object-id")
	cmd.MarkFlagRequired("lang")
	return cmd
}

type simplifyFlags struct {
	configPath     string
	object         store.ObjectRef
	targetLanguage string
	apiName        string
	batch          int
	queued         bool
}

func runSimplify(cmd *cobra.Command, flags simplifyFlags) error {
	out := cmd.OutOrStdout()

	eng, err := buildEngine(flags.configPath)
	if err != nil {
		return err
	}

	outcome, err := eng.orch.Start(run.StartOpts{
		Object:          flags.object,
		TargetLanguage:  flags.targetLanguage,
		APIName:         flags.apiName,
		MaxItemsPerTick: flags.batch,
		Queued:          flags.queued,
	})
	if err != nil {
		return err
	}
	if outcome.Run == nil {
		switch outcome.Status {
		case quota.AboveEntryLimit:
			fmt.Fprintln(out, "Too many pending fragments for an interactive run; retry with --queued")
		case quota.AboveTextLimit:
			fmt.Fprintf(out, "A fragment exceeds the %s request size limit\n", flags.apiName)
		}
		return nil
	}

	current := outcome.Run
	fmt.Fprintf(out, "Run %s started: %d fragments\n", current.ID, current.Max)
	if flags.queued {
		fmt.Fprintln(out, "Queued for background processing")
		return nil
	}

	for current.Running() {
		current, err = eng.orch.Tick(cmd.Context(), current.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %d/%d (%d failed)\n", current.Count, current.Max, current.Failed)
	}
	fmt.Fprintf(out, "Run finished: %s\n", current.Status)
	return nil
}
