package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shopsync/internal/config"
	"github.com/roach88/shopsync/internal/engine"
	"github.com/roach88/shopsync/internal/orchestrator"
	"github.com/roach88/shopsync/internal/remote"
	"github.com/roach88/shopsync/internal/shopify"
	"github.com/roach88/shopsync/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigPath overrides the config file search.
	ConfigPath string

	// JournalPath overrides the journal location; NoJournal disables it.
	JournalPath string
	NoJournal   bool

	// Test seams. Nil values select the production implementations.
	connect    func(shop config.Shop, logger *slog.Logger) remote.Remote
	configOpts []config.Option
	ids        engine.RunIDGenerator
	now        func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the shopsync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shopsync",
		Short: "shopsync - reconcile Shopify stores",
		Long: `Copy metaobject and metafield definitions and their data from one
Shopify store to another, rewriting every cross-store reference to the id of
the matching object on the target.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./shopsync.yaml, then $XDG_CONFIG_HOME/shopsync/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.JournalPath, "journal", "", "run journal database (default $XDG_DATA_HOME/shopsync/journal.db)")
	cmd.PersistentFlags().BoolVar(&opts.NoJournal, "no-journal", false, "do not record runs")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewShopsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// formatter returns the output formatter of cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger returns a text logger on the command's stderr.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the configuration honoring --config.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	opts := append([]config.Option(nil), o.configOpts...)
	if o.ConfigPath != "" {
		opts = append(opts, config.WithPath(o.ConfigPath))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	return cfg, nil
}

// remoteFor resolves a shop name and connects to it.
func (o *RootOptions) remoteFor(cfg *config.Config, name string, logger *slog.Logger) (remote.Remote, error) {
	shop, err := cfg.Resolve(name)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "resolve shop", err)
	}
	if o.connect != nil {
		return o.connect(shop, logger), nil
	}
	return shopify.NewClient(shop.Endpoint(), shop.AccessToken, shopify.WithLogger(logger.With("shop", shop.Name))), nil
}

// journalPath returns where runs are recorded, or "" when journaling is
// off. The flag wins over the config file, which wins over the XDG default.
func (o *RootOptions) journalPath(cfg *config.Config) (string, error) {
	switch {
	case o.NoJournal:
		return "", nil
	case o.JournalPath != "":
		return o.JournalPath, nil
	case cfg != nil && cfg.Journal != "":
		return cfg.Journal, nil
	}
	return config.DefaultJournalPath()
}

// Execute runs the CLI with os.Args and returns the process exit code.
// In JSON mode command errors are written to stdout as an error response;
// failed items were already reported by the command itself.
func Execute() int {
	opts := &RootOptions{Format: "text"}
	cmd := newRootCommand(opts)
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	code := GetExitCode(err)
	if opts.Format == "json" {
		if code != ExitFailure {
			_ = opts.formatter(cmd).Error(errorCode(err), err.Error(), nil)
		}
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return code
}

// errorCode classifies err for JSON error responses.
func errorCode(err error) string {
	switch {
	case GetExitCode(err) == ExitFailure:
		return CodeFailed
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrShopNotFound), errors.Is(err, config.ErrMissingCredentials):
		return CodeConfig
	case errors.Is(err, orchestrator.ErrInvalidOptions), errors.Is(err, orchestrator.ErrUnknownKind):
		return CodeOptions
	case errors.Is(err, store.ErrRunNotFound):
		return CodeJournal
	}
	return CodeCommand
}
