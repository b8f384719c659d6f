// Package gmail implements mailbox.Source over the Gmail API for Google
// Workspace domains.
//
// Each mailbox is accessed by impersonating its owner with a service account
// that has domain-wide delegation. Messages are fetched in raw RFC 822 form
// and parsed with enmime, so body text and attachments come from the same
// MIME tree a mail client would see. Labels stand in for folders.
package gmail
