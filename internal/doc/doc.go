// Package doc provides the structured document type used for record payloads.
//
// A payload is arbitrary JSON supplied by a client. Instead of passing it
// around as map[string]any, it is decoded into a sealed Value tree:
//
//   - Null, String, Number, Bool (scalars)
//   - Array, Object (containers)
//
// Numbers keep the decimal text they arrived with, so integers beyond 2^53
// and values like 1.50 survive a store round-trip unchanged.
//
// This package imports nothing internal. Validation errors for the HTTP and
// CLI surfaces are produced by package record on top of Parse.
package doc
