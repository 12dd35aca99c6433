package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ShopEntry is one configured shop as reported by the shops command.
type ShopEntry struct {
	Name       string `json:"name"`
	Domain     string `json:"domain,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
	Token      string `json:"token,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ShopsOutput is the JSON payload of the shops command.
type ShopsOutput struct {
	ConfigPath string      `json:"config_path,omitempty"`
	Shops      []ShopEntry `json:"shops"`
}

// NewShopsCommand creates the shops command.
func NewShopsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shops",
		Short: "List configured shops",
		Long: `List the shops declared in the configuration with their domain, API
version and masked access token. Shops with incomplete credentials are
listed with the reason they cannot be used.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShops(rootOpts, cmd)
		},
	}
}

func runShops(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	out := ShopsOutput{ConfigPath: cfg.Path, Shops: []ShopEntry{}}
	for _, name := range cfg.Names() {
		entry := ShopEntry{Name: name}
		shop, err := cfg.Resolve(name)
		if err != nil {
			entry.Domain = cfg.Shops[name].Domain
			entry.Error = err.Error()
		} else {
			entry.Domain = shop.Domain
			entry.APIVersion = shop.APIVersion
			entry.Token = shop.MaskedToken()
		}
		out.Shops = append(out.Shops, entry)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(out)
	}

	w := cmd.OutOrStdout()
	if len(out.Shops) == 0 {
		fmt.Fprintln(w, "no shops configured")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDOMAIN\tAPI VERSION\tTOKEN")
	for _, s := range out.Shops {
		if s.Error != "" {
			fmt.Fprintf(tw, "%s\t%s\t-\t%s\n", s.Name, s.Domain, s.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Domain, s.APIVersion, s.Token)
	}
	return tw.Flush()
}
