// Package report writes the compliance log of a scan.
//
// Findings go to a CSV file per day, <dir>/<MM-DD-YYYY>.csv, that reviewers
// open directly; the file carries the full message metadata and is written
// with owner-only permissions. Each finding is also logged through slog,
// where addresses and subjects are hashed or left out unless PII logging was
// requested.
package report
