// Package config loads, normalizes, and validates romverify configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the RA_API_KEY environment fallback. Callers obtain
// sanitized directories, matcher tuning, and scan options from one Config.
package config
