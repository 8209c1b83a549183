// Package textutil provides text normalization, string similarity metrics and
// filename sanitization.
//
// Similarity is pluggable through the Metric interface. SequenceRatio (the
// default) scores matching character blocks; TokenCosine compares
// term-frequency fingerprints and ignores word order. Callers normalize input
// with Normalize before scoring so thresholds hold regardless of case,
// compatibility forms or spacing.
package textutil
