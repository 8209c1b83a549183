// Package sqlitemirror mirrors catalog entries into a SQLite database.
//
// The mirror implements catalog.Repository so it can sit behind
// catalog.MirroredRepository. Each row keeps the searchable columns plus the
// full entry as JSON in metadata_json, which is what reads decode.
package sqlitemirror
