// Package retention owns the resident stroke set of a drawing session.
//
// A Manager wraps every stroke with access metadata and an importance
// score combining access frequency, recency, edits, collaborative origin
// and age. When the resident set exceeds its memory budget or size cap, a
// cleanup sweep evicts the least important strokes, never going below a
// configured floor. Evicted strokes are copied to a bounded BackupStore and
// transparently re-admitted when requested again.
//
// Sweeps run in three ordered passes:
//
//  1. strokes older than MaxStrokeAge
//  2. lowest importance while memory exceeds MaxMemoryMB
//  3. lowest importance while count exceeds MaxHistorySize
//
// Add and Update never sweep inline. Crossing a threshold schedules one
// deferred, coalesced Cleanup through the configured deferrer; a periodic
// Cleanup is expected from the owner (see the maintenance package).
package retention
