// Package enrichment looks up bibliographic records for validated ISBNs.
//
// Client tries its providers in configured order and returns the first
// non-empty record. Provider failures are logged and skipped; a lookup that
// finds nothing is a normal negative result, never an error. Successful
// lookups are cached on disk so repeated ingests of the same ISBN stay
// offline.
package enrichment
