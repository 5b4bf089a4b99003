// Package mapping owns the product code mapping: spreadsheet ingestion,
// change detection, and the atomically published snapshot consulted by the
// matching engine.
package mapping
