package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsync/internal/config"
	"github.com/roach88/shopsync/internal/remote"
	"github.com/roach88/shopsync/internal/testutil"
)

// cliEnv runs commands against in-memory shops declared in a temporary
// config file.
type cliEnv struct {
	t       *testing.T
	opts    *RootOptions
	shops   map[string]*remote.Memory
	config  string
	journal string
}

func newCLIEnv(t *testing.T, shops map[string]*remote.Memory, extraConfig string) *cliEnv {
	t.Helper()
	dir := t.TempDir()

	names := make([]string, 0, len(shops))
	for name := range shops {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("shops:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s:\n    domain: %s.myshopify.com\n    access_token: shpat_%s_token\n", name, name, name)
	}
	b.WriteString(extraConfig)
	path := filepath.Join(dir, "shopsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	env := &cliEnv{t: t, shops: shops, config: path, journal: filepath.Join(dir, "journal.db")}
	env.opts = &RootOptions{
		connect: func(shop config.Shop, _ *slog.Logger) remote.Remote {
			return env.shops[shop.Name]
		},
		configOpts: []config.Option{
			config.WithoutSearch(),
			config.WithDotEnv(filepath.Join(dir, "missing.env")),
			config.WithEnviron(func() []string { return nil }),
		},
		ids: testutil.NewSequenceGenerator("run"),
		now: testutil.NewFrozenClock(testutil.DefaultNow).Now,
	}
	return env
}

// run executes the root command with args and returns stdout and stderr.
func (e *cliEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCommand(e.opts)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", e.config, "--journal", e.journal}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
