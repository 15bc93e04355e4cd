// Package downloadstation implements the clients.Adapter contract for
// Synology Download Station through the DSM Web API (form-encoded POSTs to
// /webapi/<path>). The adapter discovers the API map and logs in lazily on
// first use, keeps the session id, and logs out on Close.
//
// Download Station addresses tasks by id, so control operations map hashes to
// ids through the most recent task listing. Labels are not supported.
package downloadstation
