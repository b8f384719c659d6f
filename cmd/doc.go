// Package cmd implements the command-line interface for inboxscan.
//
// This package provides the following commands:
//   - scan: Scan the mailboxes listed in a targets file for SSNs
//   - folders: List the mail folders of one mailbox
//   - version: Display version information
//
// scan is the default command, so `inboxscan config.json targets.csv`
// starts a scan.
package cmd
