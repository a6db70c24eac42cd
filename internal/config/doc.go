// Package config loads lexsync settings.
//
// Values are resolved in four layers: built-in defaults, the TOML config
// file, LEXSYNC_* environment variables and finally command-line flags,
// which the cmd package applies on top of the returned Config.
package config
