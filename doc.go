// Package ltc implements the Living Technical Codex:
// an append-only, content-addressed record of automated decisions.
//
// Each decision is captured as an immutable Entry,
// redacted according to a declarative policy,
// written durably to a date-partitioned append log,
// and optionally anchored to an external content-addressable store
// for independent verifiability.
package ltc
