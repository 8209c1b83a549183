// Package jsonfile persists JSON documents atomically and recovers damaged
// files on load.
//
// Save writes through a temp file in the destination directory followed by a
// rename. Load salvages the widest bracketed span of a corrupt file, keeps the
// original beside it as <name>.corrupted.json and rewrites the cleaned
// document. When nothing can be salvaged the caller's zero value is kept and
// the event is reported through Result.Reset.
package jsonfile
