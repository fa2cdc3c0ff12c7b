// Package report tracks the outcome of every record in a run.
//
// A Reporter counts processed, skipped and errored records and keeps the line
// number and cause of each error. It is purely observational: recording never
// fails and never panics. ProgressTracker and Printer render the same data for
// a terminal.
package report
