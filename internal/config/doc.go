// Package config loads, normalizes, and validates spines configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours SPINES_* environment overrides
// (optionally seeded from a .env file). The Config type centralizes the
// directories, escalation thresholds, tool binaries and provider settings the
// CLI and daemon need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
