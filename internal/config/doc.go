// Package config loads, normalizes, and validates gtfscache configuration.
//
// It supplies repository defaults, reads an optional TOML file, and honours
// environment fallbacks such as GTFSCACHE_CPU_LIMIT. Flags parsed by the CLI
// override file values after Load returns.
//
// Always obtain settings through this package so downstream code receives a
// validated CPU ceiling and canonical log formats.
package config
