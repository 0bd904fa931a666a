// Package rules holds the immutable eligibility rule catalog.
//
// A Catalog is built once at startup from the rule workbook (see
// LoadWorkbook) and passed by reference to the closure filter. It lists the
// grant names that always qualify for closure and maps paragraph sections to
// the legislation they must belong to. Nothing mutates a Catalog after New
// returns, so it is safe to share without locking.
package rules
