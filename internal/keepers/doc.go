// Package keepers refreshes the durable keeper roster from per-subsection
// report topics.
//
// A Syncer walks the configured subsections, finds each subsection's report
// topic through a Roster, collects the (topic_id, nick) pairs it lists and
// hands the deduplicated set to the registry for reconciliation. Roster
// failures skip the subsection; storage failures abort the run.
//
// Document is a Roster backed by a JSON export of the forum reports, used by
// the `keepers import` command and by tests.
package keepers
