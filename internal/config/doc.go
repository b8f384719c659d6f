// Package config loads the scanner's JSON credential file and the CSV list
// of target mailboxes.
//
// The credential file keeps the field names of the Azure AD sample
// configuration (authority, client_id, scope, secret, endpoint) and adds a
// provider switch plus a scanner section. Secret values may be given inline,
// as ENV=NAME or as FILE=/path. Environment variables, optionally loaded from
// a .env file, override the file.
package config
