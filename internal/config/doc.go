// Package config resolves shop names to API credentials.
//
// Sources are merged in this order, later sources winning:
//   - the YAML config file (--config, ./shopsync.yaml, or
//     $XDG_CONFIG_HOME/shopsync/config.yaml)
//   - a .env file in the working directory
//   - the process environment
//
// Per shop, SHOPSYNC_<NAME>_DOMAIN and SHOPSYNC_<NAME>_ACCESS_TOKEN override
// the file; a shop may be declared by environment alone. A token_env entry
// names another variable holding the token.
//
// The merged configuration is validated against an embedded CUE schema
// before any shop is resolved.
package config
