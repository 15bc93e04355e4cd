// Package services defines shared utilities consumed by the synchronization
// components and vendor integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, client IDs, and subsection IDs for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     configuration, adapter, storage, validation, or not-found errors, so the
//     run loop can decide whether to continue or abort.
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability) stays uniform across a run.
package services
