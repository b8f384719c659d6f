// Package scanner finds Social-Security-Number-like strings in mail content.
//
// It has three layers:
//   - Matcher: a compiled pattern plus an optional validator, used both for
//     message bodies (strict pattern) and for attachment text (loose pattern).
//   - Extractors: per format-kind conversion of a decoded attachment into a
//     flat text blob (CSV, spreadsheet, Word document).
//   - Pipeline: filters attachment descriptors by extension, decodes them into
//     a scoped temporary file, dispatches to the matching extractor and
//     collects one MatchResult per attachment that contains matches.
//
// Data-shape problems (unknown extension, bad base64, unreadable document) are
// contained per attachment. Only environment failures such as a temp file that
// cannot be written are reported to the caller, and even those do not stop the
// remaining attachments from being scanned.
//
// Example usage:
//
//	p, err := scanner.NewPipeline(scanner.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	results, err := p.Scan(ctx, attachments)
package scanner
