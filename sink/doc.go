// Package sink writes pipeline output.
//
// Two destinations implement Writer. A file sink created with CreateFile
// writes one JSON document per line and flushes after every line, so an
// interrupted run leaves a file whose every line is complete. A Batch holds
// lines in memory and submits them to the ingestion endpoint as a single
// upload when flushed; the upload either succeeds as a whole or fails as a
// whole.
package sink
