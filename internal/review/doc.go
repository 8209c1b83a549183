// Package review holds drafts that need an operator decision before they are
// committed to the catalog.
//
// Items move from pending_review to file_missing when a liveness check finds
// the backing temp file gone, and to processing_failed when approval's
// finalize step fails. Approve and reject are the only operations that remove
// items. The queue persists as a JSON array validated against an embedded
// schema on every load.
package review
