package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gofhir/txaudit"
	"github.com/gofhir/txaudit/pkg/config"
	"github.com/gofhir/txaudit/pkg/report"
)

const defaultConfigPath = "config.json"

// resolveConfigPath drops the default config file when it does not exist,
// so a run can be configured from the environment alone.
func resolveConfigPath(cmd *cobra.Command, path string) string {
	if cmd.Flags().Changed("config") {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func newCheckCmd(logs *logFlags) *cobra.Command {
	var (
		jsonDir        string
		outDir         string
		configPath     string
		prefix         string
		recursive      bool
		workers        int
		formats        []string
		metricsFile    string
		skipCapability bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Audit every Coding in a folder of FHIR JSON instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closer, err := logs.build(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			if info, err := os.Stat(jsonDir); err != nil || !info.IsDir() {
				return fmt.Errorf("json directory %q not found", jsonDir)
			}

			var wanted []report.Format
			for _, name := range formats {
				f, err := report.ParseFormat(name)
				if err != nil {
					return err
				}
				wanted = append(wanted, f)
			}

			cfg, err := config.Load(resolveConfigPath(cmd, configPath))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}

			opts := append(txaudit.ConfigOptions(cfg),
				txaudit.WithLogger(log),
				txaudit.WithPrefix(prefix),
				txaudit.WithRecursive(recursive),
			)
			var metrics *txaudit.Metrics
			if metricsFile != "" {
				metrics = txaudit.NewMetrics()
				opts = append(opts, txaudit.WithMetrics(metrics))
			}

			auditor, err := txaudit.New(cfg.Endpoint, opts...)
			if err != nil {
				return err
			}

			if skipCapability {
				log.Warn().Msg("capability check skipped")
			} else if err := auditor.CheckCapability(cmd.Context()); err != nil {
				log.Error().Err(err).Msg("capability test failed")
				return err
			}

			rep, err := auditor.Run(cmd.Context(), jsonDir)
			if err != nil {
				return err
			}

			paths, err := rep.Write(outDir, wanted...)
			if err != nil {
				return err
			}
			for _, p := range paths {
				log.Info().Str("path", p).Msg("report written")
			}

			if metrics != nil {
				if err := os.MkdirAll(filepath.Dir(metricsFile), 0o755); err != nil {
					return fmt.Errorf("failed to create metrics directory: %w", err)
				}
				if err := metrics.WriteToTextfile(metricsFile); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}

			fmt.Fprint(cmd.OutOrStdout(), rep.Summary())
			if rep.HasFailures() {
				return errFailures
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&jsonDir, "jsondir", "j", ".", "Folder holding the FHIR JSON instances")
	f.StringVarP(&outDir, "outdir", "o", "reports", "Folder the reports are written to")
	f.StringVarP(&configPath, "config", "c", defaultConfigPath, "Configuration file (JSON, YAML or TOML)")
	f.StringVar(&prefix, "prefix", "", "Only audit files whose name starts with this prefix")
	f.BoolVar(&recursive, "recursive", false, "Descend into subfolders (assets, temp and templates are skipped)")
	f.IntVar(&workers, "workers", 1, "Codings checked concurrently per file")
	f.StringSliceVar(&formats, "format", []string{string(report.HTML), string(report.XLSX)}, "Report formats: html, xlsx, csv, json, yaml, sqlite")
	f.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	f.BoolVar(&skipCapability, "skip-capability", false, "Do not check the server capability statement first")
	return cmd
}
