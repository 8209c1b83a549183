// Package preflight provides readiness checks for the directories and
// external services spines depends on.
//
// `spines deps` prints every result; the daemon runs RunAll once at start and
// refuses to schedule jobs when a required directory is unusable. Enrichment
// reachability is reported but never fatal since extraction degrades without
// it.
package preflight
