// Package enrich attaches embeddings to chunk records.
//
// An Enricher asks its Predicate whether a record needs an embedding. Records
// that already carry one are reported as skipped and never reach the embedder,
// which makes re-running over a partially enriched file resume where the last
// run stopped. Calls that do reach the embedder are spaced by a fixed delay.
//
// Failures are scoped to a single record: Enrich reports core.OutcomeErrored
// with the cause and the caller moves on to the next record.
package enrich
