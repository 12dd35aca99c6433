package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

const (
	envPrefix      = "SHOPSYNC_"
	localFile      = "shopsync.yaml"
	xdgConfigFile  = "shopsync/config.yaml"
	xdgJournalFile = "shopsync/journal.db"
)

// Loader reads configuration from files and the environment.
type Loader struct {
	path    string
	dotenv  string
	environ func() []string
	search  func() (string, bool)
}

// Option configures a Loader.
type Option func(*Loader)

// WithPath reads the config from path. A missing file is an error.
func WithPath(path string) Option {
	return func(l *Loader) {
		l.path = path
	}
}

// WithDotEnv reads environment overrides from path instead of ./.env.
func WithDotEnv(path string) Option {
	return func(l *Loader) {
		l.dotenv = path
	}
}

// WithEnviron replaces the process environment, as returned by
// os.Environ.
func WithEnviron(environ func() []string) Option {
	return func(l *Loader) {
		l.environ = environ
	}
}

// WithoutSearch disables the default file lookup when no path is given.
func WithoutSearch() Option {
	return func(l *Loader) {
		l.search = func() (string, bool) { return "", false }
	}
}

// NewLoader creates a loader with the default sources.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		dotenv:  ".env",
		environ: os.Environ,
		search:  searchConfigFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, merges and validates the configuration.
func Load(opts ...Option) (*Config, error) {
	return NewLoader(opts...).Load()
}

// Load reads, merges and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := &Config{}

	path := l.path
	if path == "" {
		if found, ok := l.search(); ok {
			path = found
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		cfg.Path = path
	}

	env, err := l.env()
	if err != nil {
		return nil, err
	}
	applyEnv(cfg, env)

	if err := validate(cfg); err != nil {
		where := cfg.Path
		if where == "" {
			where = "environment"
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, where, err)
	}
	return cfg, nil
}

// env merges the .env file under the process environment.
func (l *Loader) env() (map[string]string, error) {
	env := map[string]string{}
	if l.dotenv != "" {
		fileEnv, err := godotenv.Read(l.dotenv)
		switch {
		case err == nil:
			for k, v := range fileEnv {
				env[k] = v
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", l.dotenv, err)
		}
	}
	for _, kv := range l.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return env, nil
}

// applyEnv folds SHOPSYNC_<NAME>_DOMAIN / _ACCESS_TOKEN variables and
// token_env indirections into cfg.
func applyEnv(cfg *Config, env map[string]string) {
	if cfg.Shops == nil {
		cfg.Shops = map[string]ShopConfig{}
	}
	normalized := make(map[string]ShopConfig, len(cfg.Shops))
	for name, sc := range cfg.Shops {
		normalized[strings.ToLower(name)] = sc
	}
	cfg.Shops = normalized

	for k := range env {
		if !strings.HasPrefix(k, envPrefix) || !strings.HasSuffix(k, "_DOMAIN") {
			continue
		}
		name := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(k, envPrefix), "_DOMAIN"))
		if name == "" {
			continue
		}
		if _, ok := cfg.Shops[name]; !ok {
			cfg.Shops[name] = ShopConfig{}
		}
	}

	for name, sc := range cfg.Shops {
		prefix := envPrefix + envName(name)
		if v := env[prefix+"_DOMAIN"]; v != "" {
			sc.Domain = v
		}
		switch {
		case env[prefix+"_ACCESS_TOKEN"] != "":
			sc.AccessToken = env[prefix+"_ACCESS_TOKEN"]
		case sc.TokenEnv != "" && env[sc.TokenEnv] != "":
			sc.AccessToken = env[sc.TokenEnv]
		}
		sc.Domain = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(sc.Domain, "https://"), "http://")))
		sc.Domain = strings.TrimSuffix(sc.Domain, "/")
		cfg.Shops[name] = sc
	}
}

func envName(shop string) string {
	return strings.ToUpper(strings.ReplaceAll(shop, "-", "_"))
}

// validate unifies cfg with the #Config definition of the embedded schema.
func validate(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	v := ctx.Encode(cfg)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	return unified.Validate(cue.Concrete(true))
}

func searchConfigFile() (string, bool) {
	if _, err := os.Stat(localFile); err == nil {
		return localFile, true
	}
	if path, err := xdg.SearchConfigFile(xdgConfigFile); err == nil {
		return path, true
	}
	return "", false
}

// DefaultJournalPath returns the journal location under $XDG_DATA_HOME,
// creating its directory.
func DefaultJournalPath() (string, error) {
	path, err := xdg.DataFile(xdgJournalFile)
	if err != nil {
		return "", fmt.Errorf("journal path: %w", err)
	}
	return filepath.Clean(path), nil
}
