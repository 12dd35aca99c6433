package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultAPIVersion is the Admin API version used when none is configured.
const DefaultAPIVersion = "2024-10"

// Resolution errors.
var (
	ErrShopNotFound       = errors.New("shop not found")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidConfig      = errors.New("invalid config")
)

// ShopConfig is one shop entry of the config file.
type ShopConfig struct {
	Domain      string `yaml:"domain,omitempty" json:"domain,omitempty"`
	AccessToken string `yaml:"access_token,omitempty" json:"access_token,omitempty"`
	TokenEnv    string `yaml:"token_env,omitempty" json:"token_env,omitempty"`
	APIVersion  string `yaml:"api_version,omitempty" json:"api_version,omitempty"`
}

// Config is the decoded config file after environment overrides.
type Config struct {
	APIVersion string                `yaml:"api_version,omitempty" json:"api_version,omitempty"`
	Journal    string                `yaml:"journal,omitempty" json:"journal,omitempty"`
	Shops      map[string]ShopConfig `yaml:"shops,omitempty" json:"shops,omitempty"`

	// Path is the file the config was read from, empty when none was found.
	Path string `yaml:"-" json:"-"`
}

// Shop is a resolved deployment: where to connect and with which token.
type Shop struct {
	Name        string
	Domain      string
	AccessToken string
	APIVersion  string
}

// Endpoint returns the GraphQL Admin API URL of the shop.
func (s Shop) Endpoint() string {
	return "https://" + s.Domain + "/admin/api/" + s.APIVersion + "/graphql.json"
}

// MaskedToken returns the token with all but its last four characters
// hidden.
func (s Shop) MaskedToken() string {
	if s.AccessToken == "" {
		return ""
	}
	if len(s.AccessToken) <= 4 {
		return "****"
	}
	return "****" + s.AccessToken[len(s.AccessToken)-4:]
}

// Names returns the declared shop names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Shops))
	for name := range c.Shops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the credentials of the named shop.
func (c *Config) Resolve(name string) (Shop, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	sc, ok := c.Shops[key]
	if !ok {
		return Shop{}, fmt.Errorf("%w: %q", ErrShopNotFound, name)
	}
	shop := Shop{Name: key, Domain: sc.Domain, AccessToken: sc.AccessToken, APIVersion: sc.APIVersion}
	if shop.APIVersion == "" {
		shop.APIVersion = c.APIVersion
	}
	if shop.APIVersion == "" {
		shop.APIVersion = DefaultAPIVersion
	}

	var missing []string
	if shop.Domain == "" {
		missing = append(missing, "domain")
	}
	if shop.AccessToken == "" {
		missing = append(missing, "access token")
	}
	if len(missing) > 0 {
		return Shop{}, fmt.Errorf("shop %q: %w: %s", key, ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return shop, nil
}

// IsShopNotFound reports whether err is an unknown shop name.
func IsShopNotFound(err error) bool {
	return errors.Is(err, ErrShopNotFound)
}

// IsMissingCredentials reports whether err is an incomplete shop entry.
func IsMissingCredentials(err error) bool {
	return errors.Is(err, ErrMissingCredentials)
}
