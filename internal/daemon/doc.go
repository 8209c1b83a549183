// Package daemon runs the long-lived spines process.
//
// It holds the data-directory lock for its whole lifetime, runs the scheduled
// maintenance jobs (OCR batch, review liveness check, temp and log cleanup)
// on robfig/cron schedules, and optionally drives the inbox watcher. Job
// logic lives in the queue packages; the daemon only decides when it runs.
package daemon
