// Package source scrapes the regional operator's outage schedule page.
//
// The Fetcher interface is what the rest of the pipeline sees; the HTTP
// client and the text parser are implementation detail. Absent or malformed
// page data yields a nil snapshot, never an error the caller must branch on:
// "no data this cycle" and "page changed under us" both resolve the same
// way, skip and retry on the next poll.
package source
