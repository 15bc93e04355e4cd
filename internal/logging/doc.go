// Package logging assembles structured slog loggers used across webtlo.
//
// It owns the console and JSON handlers, the level and output plumbing, and
// context-aware helpers that tag log lines with run, client and subsection
// identifiers. RunLog is the run-scoped sink: every record of a run is kept in
// memory and appended to the job's log file once, when the run ends, followed
// by a done marker. The file is rotated to a single ".1" backup once it grows
// past the configured size.
package logging
