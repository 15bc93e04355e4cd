// Package registry persists the local release registry in SQLite.
//
// The Store owns every durable entity: subsections (Forums), releases
// (Topics), their 30-day metric history (Seeders), the keeper roster
// (Keepers) and the per-client task cache (ClientTasks). All writes go through
// the Store so that the history rotation and cascade rules hold in one place:
// a history row is created and deleted together with its release, and the
// rolling windows shift exactly once per day-marker change, inside the same
// transaction as the metric update.
//
// The schema keeps the historical short column names (na, hs, se, ...) so
// databases created by earlier releases open without conversion. Migrations
// are an ordered list of re-appliable steps gated by PRAGMA user_version.
package registry
