// Package config loads, normalizes, and validates mycinema configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY, WEBSHARE_USERNAME and WEBSHARE_PASSWORD. The Config type
// centralizes every knob the daemon and CLI need: database location, metadata
// and file-search credentials, ingestion policy and tier ceilings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
