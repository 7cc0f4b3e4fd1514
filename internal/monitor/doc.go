// Package monitor runs the ingestion side of the pipeline: poll the source
// on an interval, detect schedule changes, enqueue notification jobs. It
// shares nothing with the dispatch loop except the bounded queue.
package monitor
