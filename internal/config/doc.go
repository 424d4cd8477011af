// Package config loads, normalizes, and validates docsort configuration
// from TOML. Defaults apply when no config file exists so the daemon can
// start with nothing but a storage root.
package config
