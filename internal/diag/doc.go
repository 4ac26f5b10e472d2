// Package diag defines the coded errors shared by every stage of the
// generator.
//
// A Code is a stable numeric identifier grouped by area (ELF input,
// architecture resolution, code generation, options). Error pairs a code
// with a message and an optional hint, and matches any other Error with the
// same code under errors.Is, so callers test against the Err* sentinels.
package diag
