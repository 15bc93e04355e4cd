// Package clients defines the torrent-client adapter contract.
//
// Every vendor implements Adapter and reports live tasks with the shared
// Status vocabulary produced by Normalize. Vendors register a Factory under
// their config kind (see Register) so callers build adapters from
// configuration with New, usually wrapped by WithBreaker.
package clients
