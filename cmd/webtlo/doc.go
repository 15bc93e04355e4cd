// Command webtlo maintains the local release registry of a tracker keeper.
//
// Jobs are invoked as subcommands and are meant to be scheduled externally:
// `sync` pulls task lists from the configured torrent clients, `catalog
// import` applies a tracker catalog snapshot and rotates history windows,
// `keepers import` reconciles the keeper roster. A run lock in the data
// directory keeps two jobs from writing at the same time.
package main
