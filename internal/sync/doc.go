// Package sync implements the daily task sync.
//
// # Overview
//
// Upstream tooling fills a staging collection (tasks_refresh) with the task
// templates for the day. Once per day a scheduler runs the syncer, which
// copies every staging document into the operational collection (tasks) as a
// fresh active record:
//
//	tasks_refresh                          tasks
//	{_id, title, ...}   ── Transform ──▶   {title, ..., date: "2024-03-01",
//	                                        comments: [], status_trail: []}
//
// The operational collection keeps one copy per sync day, so the same
// template appears once for every day it was synced.
//
// # Retention
//
// After inserting, records dated before day-N are deleted (N defaults to 5).
// Dates are compared as YYYY-MM-DD strings, which sort chronologically. When
// an archiver is configured the expiring records are uploaded first; if the
// upload fails nothing is deleted.
//
// # Error Handling
//
// The syncer is resilient to individual record failures:
//
//   - A failed insert is logged with the record's title and counted
//   - Remaining records are still inserted
//   - A retention failure is recorded on the Result; inserted records stay
//   - Only an unreadable staging collection aborts the run
//
// Result.OK tells the caller whether the run should be reported as failed.
//
// # Concurrency
//
// A Run is strictly sequential. Concurrent runs against the same collections
// are not coordinated and will both insert every staging record.
package sync
