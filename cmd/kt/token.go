package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/klartext/klartext/internal/config"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage provider API tokens",
	}

	cmd.AddCommand(newTokenSetCmd())
	return cmd
}

func newTokenSetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "set <api>",
		Short: "Store a provider API token in the config file",
		Long:  "Prompts for the token without echoing it to the terminal and writes it into the config file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenSet(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Klartext config file")
	return cmd
}

func runTokenSet(cmd *cobra.Command, configPath, apiName string) error {
	out := cmd.OutOrStdout()

	switch apiName {
	case config.APISummAi, config.APICapito, config.APIChatGpt:
	default:
		return fmt.Errorf("unknown provider %q (summ_ai, capito, chatgpt)", apiName)
	}

	fmt.Fprintf(out, "Token for %s: ", apiName)
	token, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if strings.TrimSpace(string(token)) == "" {
		return fmt.Errorf("token must not be empty")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	api := cfg.API(apiName)
	api.Token = strings.TrimSpace(string(token))
	cfg.APIs[apiName] = api

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(out, "Token for %s saved to %s\n", apiName, configPath)
	return nil
}
