package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/gofhir/txaudit"
	"github.com/gofhir/txaudit/pkg/config"
)

func newCapabilityCmd(logs *logFlags) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "capability",
		Short: "Check that the configured endpoint is an R4 terminology server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closer, err := logs.build(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			cfg, err := config.Load(resolveConfigPath(cmd, configPath))
			if err != nil {
				return err
			}

			auditor, err := txaudit.New(cfg.Endpoint, append(txaudit.ConfigOptions(cfg), txaudit.WithLogger(log))...)
			if err != nil {
				return err
			}

			status, err := auditor.Capability(cmd.Context())
			if err != nil {
				return fmt.Errorf("%w: %v", txaudit.ErrCapability, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", auditor.Endpoint(), status)
			if status != http.StatusOK {
				return fmt.Errorf("%w: status %d", txaudit.ErrCapability, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Configuration file (JSON, YAML or TOML)")
	return cmd
}
