// Package isbn finds and validates ISBN-10 and ISBN-13 identifiers in free text.
//
// Detection runs a labelled pass (text preceded by "ISBN" or "SBN") and an
// unanchored structural pass over bare 10/13 digit runs that may be broken up
// by hyphens, en-dashes or spaces. Candidates are cleaned, de-duplicated and
// ranked longest first, then by position; the first one passing checksum and
// blacklist checks wins.
package isbn
