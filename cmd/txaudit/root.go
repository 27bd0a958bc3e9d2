package main

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gofhir/txaudit/pkg/logger"
)

// errFailures makes the process exit 1 without printing an error; the
// summary already lists the failing codes.
var errFailures = errors.New("audit found failing codes")

type logFlags struct {
	level  string
	format string
	dir    string
}

func (f *logFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.level, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&f.format, "log-format", logger.FormatConsole, "Log format: console, json")
	cmd.PersistentFlags().StringVar(&f.dir, "log-dir", "", "Also write a JSON log file into this directory")
}

func (f *logFlags) build(cmd *cobra.Command) (zerolog.Logger, io.Closer, error) {
	return logger.New(logger.Config{
		Level:  f.level,
		Format: f.format,
		Dir:    f.dir,
		Out:    cmd.ErrOrStderr(),
	})
}

func newRootCmd() *cobra.Command {
	var logs logFlags

	cmd := &cobra.Command{
		Use:           "txaudit",
		Short:         "Audit FHIR test data codes against a terminology server",
		Long:          "txaudit finds every Coding in a folder of FHIR JSON instances, checks it with CodeSystem/$validate-code and reports PASS, FAIL, ERROR, INFO and EXCLUDED rows.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	logs.register(cmd)

	cmd.AddCommand(newCheckCmd(&logs))
	cmd.AddCommand(newCapabilityCmd(&logs))
	cmd.AddCommand(newVersionCmd())
	return cmd
}
