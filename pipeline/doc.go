// Package pipeline composes the stream, enrich, project and sink stages into runs.
//
// A Pipeline is configured with the stages it should apply:
//   - WithEnricher only: embed mode, records gain embeddings and keep their shape
//   - WithProjector (or WithDerivedNamespace) only: convert mode
//   - both: prepare mode, records are embedded and then projected
//   - neither: records are validated and copied unchanged, which is how uploads
//     are staged
//
// A single run is strictly sequential and preserves input order. Failures of
// individual lines are counted by the run's report.Reporter and never stop the
// run; failures of the destination do.
//
// RunDir processes every matching file of a directory, each in its own
// sequential run, concurrently on a worker pool.
package pipeline
