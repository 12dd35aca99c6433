package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/shopsync/internal/orchestrator"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Types  []string
	Handle string
	ID     string
	Limit  int
	DryRun bool
	Yes    bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <target> <kind>...",
		Short: "Delete entities from a shop",
		Long: `Delete entities of the given kinds from the target shop. Only kinds
whose entities can be created (metaobjects, products, collections, pages)
can be deleted. Nothing is read from any other shop.

Deletion is irreversible; it requires --yes unless --dry-run is set.

Examples:
  shopsync delete staging metaobjects --type designer --dry-run
  shopsync delete staging products --handle old-chair --yes
  shopsync delete staging metaobjects --limit 10 --yes`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "metaobject definition types (repeatable)")
	cmd.Flags().StringVar(&opts.Handle, "handle", "", "only the entity with this handle or SKU")
	cmd.Flags().StringVar(&opts.ID, "id", "", "only the entity with this id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entities deleted per kind (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would be deleted without deleting")
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deletion")

	return cmd
}

func runDelete(opts *DeleteOptions, target string, kinds []string, cmd *cobra.Command) error {
	if !opts.DryRun && !opts.Yes {
		return NewExitError(ExitCommandError, "delete is irreversible: pass --yes to confirm or --dry-run to preview")
	}

	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	orch, err := opts.orchestrator(s, target, target)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd, s.logger)
	defer cancel()

	out, err := orch.Delete(ctx, orchestrator.Options{
		Target: target,
		Kinds:  kinds,
		Handle: opts.Handle,
		Types:  opts.Types,
		ID:     opts.ID,
		Limit:  opts.Limit,
		DryRun: opts.DryRun,
	})
	if err != nil {
		return optionsError(err)
	}
	return opts.finishRun(cmd, out, opts.DryRun)
}
