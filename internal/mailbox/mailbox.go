// Package mailbox defines the provider-neutral view of a mailbox that the
// scan runner works against. Microsoft Graph and Gmail both implement Source.
package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/teemow/inboxscan/internal/scanner"
)

// ErrUserNotFound is returned when the directory has no mailbox for an address.
var ErrUserNotFound = errors.New("user not found")

// ErrFolderNotFound is returned when no folder carries the requested name.
var ErrFolderNotFound = errors.New("folder not found")

// User is a resolved mailbox owner.
type User struct {
	ID          string
	Address     string
	DisplayName string
}

// Message is the part of a mail message the scanner looks at.
type Message struct {
	ID             string
	Subject        string
	Sender         string
	Recipients     []string
	ReceivedAt     time.Time
	FolderID       string
	Folder         string
	Body           string
	HasAttachments bool
}

// Recipient returns the first recipient, or "" when there is none.
func (m *Message) Recipient() string {
	if len(m.Recipients) == 0 {
		return ""
	}
	return m.Recipients[0]
}

// Folder is a mail folder (Graph) or label (Gmail).
type Folder struct {
	ID         string
	Name       string
	ChildCount int
}

// MessageFunc is called once per message. Returning an error stops the
// traversal and is returned from ForeachMessage.
type MessageFunc func(*Message) error

// Source is a mail backend.
type Source interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// ResolveUser looks up the mailbox for address. It returns an error
	// wrapping ErrUserNotFound if there is none.
	ResolveUser(ctx context.Context, address string) (*User, error)

	// ForeachMessage walks every message of the mailbox, or of one folder
	// when folderID is not empty, following pagination until the end.
	ForeachMessage(ctx context.Context, user *User, folderID string, fn MessageFunc) error

	// ListAttachments returns the file attachments of msg.
	ListAttachments(ctx context.Context, user *User, msg *Message) ([]scanner.Attachment, error)

	// ListFolders returns the top-level folders, or the children of parentID.
	ListFolders(ctx context.Context, user *User, parentID string) ([]Folder, error)
}

// FindFolder returns the folder whose display name is exactly name.
func FindFolder(folders []Folder, name string) (Folder, error) {
	for _, f := range folders {
		if f.Name == name {
			return f, nil
		}
	}
	return Folder{}, ErrFolderNotFound
}

// ResolveFolder finds a top-level folder of user by name.
func ResolveFolder(ctx context.Context, src Source, user *User, name string) (Folder, error) {
	folders, err := src.ListFolders(ctx, user, "")
	if err != nil {
		return Folder{}, err
	}
	return FindFolder(folders, name)
}
