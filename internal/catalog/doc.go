// Package catalog models committed library entries and the storage contract
// the ingestion core depends on.
//
// Repository is the only storage surface the core sees. JSONStore keeps the
// canonical library.json document (entries keyed by id plus a library
// metadata block) and serialises every read-modify-write with a mutex.
// MirroredRepository fans writes out to a secondary store, typically the
// sqlite mirror, without letting mirror failures affect the primary.
//
// Manual edits are tracked per field on each Entry. Once a field is marked
// edited, MergeEnrichment and Entry.ApplyEnrichment leave it alone.
package catalog
