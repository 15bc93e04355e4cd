// Package preflight provides readiness checks for the filesystem paths,
// credentials and torrent clients that webtlo jobs depend on.
//
// The CLI "webtlo preflight" command runs RunAll and prints one line per
// check. Checks never mutate state; client checks open and close a session.
package preflight
