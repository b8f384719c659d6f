package instrumentation

import "strings"

// ExtractUserDomain extracts the domain part from an email address.
// Metrics never carry full mailbox addresses; the domain is the finest
// grain allowed, and only when detailed labels are enabled.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return StatusUnknown
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return StatusUnknown
}

// Mail API operation types.
const (
	OperationGetUser         = "get_user"
	OperationListMessages    = "list_messages"
	OperationGetMessage      = "get_message"
	OperationGetFolder       = "get_folder"
	OperationListFolders     = "list_folders"
	OperationListAttachments = "list_attachments"
)
