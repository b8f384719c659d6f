// Package graph implements mailbox.Source over the Microsoft Graph REST API.
//
// Requests go through an HTTP client that already carries the application
// token (see internal/auth). Collections are paged by following
// @odata.nextLink until the service stops returning one.
package graph
