// Package config loads, normalizes, and validates reconciliation engine
// configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the OPENROUTER_API_KEY
// environment fallback. Defaults mirror the algorithm defaults of the
// matching, alignment, and repair packages, so an empty file behaves exactly
// like calling those packages with no options.
//
// Always obtain settings through this package so downstream code receives
// canonical log formats and clear validation errors.
package config
