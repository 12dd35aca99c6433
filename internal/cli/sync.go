package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/shopsync/internal/orchestrator"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Definitions   bool
	Data          bool
	Key           string
	Handle        string
	Namespace     string
	Types         []string
	Limit         int
	DryRun        bool
	ForceRecreate bool
	SkipUnchanged bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <source> <target> <kind>...",
		Short: "Copy definitions and data from one shop to another",
		Long: `Reconcile definitions and data of the given resource kinds from the
source shop into the target shop. Definitions are reconciled before data.
Items are matched by natural key (type, namespace.key, handle or SKU) and
every cross-store reference is rewritten to the target's id.

--key selects one definition (a metaobject type or namespace.key) and the
data written for it. --handle selects one entity by handle or SKU.

Kinds: metaobjects, products, variants, collections, customers, orders,
companies, locations, pages, blogs, articles, shop, or "all".

Without --definitions or --data both passes run.

Exit codes:
  0 - Every item reconciled
  1 - The run completed with failed items
  2 - Command error (unknown shop, bad flags, unreadable config)

Examples:
  shopsync sync staging production metaobjects
  shopsync sync staging production products --namespace custom,specs --data
  shopsync sync staging production products --namespace all --dry-run
  shopsync sync staging production metaobjects --type designer --handle ada`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args[0], args[1], args[2:], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Definitions, "definitions", false, "reconcile definitions")
	cmd.Flags().BoolVar(&opts.Data, "data", false, "reconcile data")
	cmd.Flags().StringVar(&opts.Key, "key", "", "only the definition with this type or namespace.key")
	cmd.Flags().StringVar(&opts.Handle, "handle", "", "only the entity with this handle or SKU")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", `metafield namespace, comma list, or "all"`)
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "metaobject definition types (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum items attempted per pass (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&opts.ForceRecreate, "force-recreate", false, "delete matched entities and create them again")
	cmd.Flags().BoolVar(&opts.SkipUnchanged, "skip-unchanged", false, "skip matched items that already equal the source")

	return cmd
}

func runSync(opts *SyncOptions, source, target string, kinds []string, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	orch, err := opts.orchestrator(s, source, target)
	if err != nil {
		return err
	}

	definitions, data := opts.Definitions, opts.Data
	if !definitions && !data {
		definitions, data = true, true
	}

	ctx, cancel := signalContext(cmd, s.logger)
	defer cancel()

	out, err := orch.Sync(ctx, orchestrator.Options{
		Source:        source,
		Target:        target,
		Kinds:         kinds,
		Definitions:   definitions,
		Data:          data,
		Key:           opts.Key,
		Handle:        opts.Handle,
		Namespace:     opts.Namespace,
		Types:         opts.Types,
		Limit:         opts.Limit,
		DryRun:        opts.DryRun,
		ForceRecreate: opts.ForceRecreate,
		SkipUnchanged: opts.SkipUnchanged,
	})
	if err != nil {
		return optionsError(err)
	}
	return opts.finishRun(cmd, out, opts.DryRun)
}
