// Package cli implements the helmkit command line: notation operations,
// the monomer catalog and the demo run, all executed in-process.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/turtacn/helmkit/internal/bootstrap"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/version"
	"github.com/turtacn/helmkit/pkg/errors"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// skipBootstrap marks commands that run without configuration or registry.
const skipBootstrap = "helmkit/skip-bootstrap"

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
	Strict       bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config  *config.Config
	Logger  logging.Logger
	Infra   *bootstrap.Infrastructure
	Printer *Printer

	// strict is nil unless --strict was given, so the configured default applies.
	strict *bool
}

// ExitError carries a process exit code. A silent ExitError prints nothing;
// the command has already reported the outcome.
type ExitError struct {
	Code   int
	Err    error
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewRootCommand creates the root command with its global flags and every
// subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "helmkit",
		Short: "helmkit parses, validates and analyses HELM macromolecule notation",
		Long: "helmkit reads HELM and HELM2 notation for peptides, oligonucleotides and\n" +
			"chemical conjugates. It validates notations against the monomer library,\n" +
			"counts monomers, computes canonical forms, SMILES and molecular properties,\n" +
			"and projects natural-analogue sequences.",
		Version: version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext); ok && c.Infra != nil {
				return c.Infra.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: HELMKIT_* environment and built-in defaults)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.BoolVar(&opts.Strict, "strict", false, "fail sequence projection on monomers without a natural analogue")

	cmd.AddCommand(
		newValidateCmd(),
		newCountCmd(),
		newCanonicalCmd(),
		newSMILESCmd(),
		newPropertiesCmd(),
		newSequenceCmd(),
		newAnalyzeCmd(),
		newConvertCmd(),
		newDemoCmd(),
		newMonomersCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	printer, err := NewPrinter(cmd.OutOrStdout(), opts.OutputFormat, opts.NoColor)
	if err != nil {
		return err
	}
	cliCtx := &CLIContext{Printer: printer}
	if cmd.Flags().Changed("strict") {
		strict := opts.Strict
		cliCtx.strict = &strict
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))

	if cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return err
	}
	logger := newCLILogger(cmd.ErrOrStderr(), opts.LogLevel)

	infra, err := bootstrap.New(cmd.Context(), cfg, logger, bootstrap.Options{Component: "cli"})
	if err != nil {
		return err
	}
	cliCtx.Config = cfg
	cliCtx.Logger = logger
	cliCtx.Infra = infra
	return nil
}

// newCLILogger writes console-encoded entries to w, normally stderr, so
// they never mix with command output.
func newCLILogger(w io.Writer, level string) logging.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), logging.ParseLevel(level))
	return logging.NewLoggerFromCore(core)
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute() int {
	return Run(context.Background(), NewRootCommand(), os.Args[1:])
}

// Run executes root with args and maps the outcome to an exit code.
func Run(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *ExitError
	if stderrors.As(err, &exit) {
		if !exit.Silent {
			PrintError(root, exit.Err)
		}
		return exit.Code
	}
	PrintError(root, err)
	return 1
}

// PrintError writes err to stderr. Application errors keep their code.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", strings.TrimSpace(err.Error()))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipBootstrap: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "helmkit "+version.String())
			return nil
		},
	}
}
