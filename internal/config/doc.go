// Package config loads, normalizes, and validates webtlo configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// forum credentials (WEBTLO_TRACKER_LOGIN, WEBTLO_TRACKER_PASSWORD). The Config
// type centralizes the torrent clients, tracked subsections, and keeper scan
// settings every job needs.
//
// Validation failures are tagged with services.ErrConfiguration so callers can
// abort before touching the database or the network.
package config
