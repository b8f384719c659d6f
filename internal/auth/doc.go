// Package auth acquires OAuth2 tokens for the mail providers.
//
// Microsoft Graph uses the client-credential grant against the tenant
// authority. Google Workspace uses a service account key with domain-wide
// delegation, impersonating each scanned mailbox. Both are wrapped in a
// token cache: a valid token on disk is used silently, otherwise a new one is
// fetched and stored.
package auth
