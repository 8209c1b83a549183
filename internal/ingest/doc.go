// Package ingest commits documents to the catalog.
//
// The Finalizer turns an accepted draft into a catalog entry: it assigns the
// content-hash id, resolves contributor collisions through the copy action,
// moves the asset into its library folder and links related copies in both
// directions. The Pipeline is the upload path in front of it, routing each
// document to the finalizer, the review queue or the OCR queue.
package ingest
