// Package runner drives a scan: it walks every target mailbox through a
// mailbox.Source, checks message bodies with the strict SSN pattern, hands
// attachments to the scanner pipeline and records each hit as a finding.
package runner
