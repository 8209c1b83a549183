// Package logs reads the spines log file for `spines logs`.
//
// Last returns the final lines with bounded memory, ReadFrom resumes at a byte
// offset and Follow streams appended lines until the context ends. Both log
// formats are understood by MatchComponent.
package logs
