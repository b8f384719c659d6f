package graph

import (
	"context"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/mailbox"
)

const includeHidden = "?includeHiddenFolders=true"

type mailFolder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ChildFolderCount int    `json:"childFolderCount"`
}

// ListFolders implements mailbox.Source. Hidden folders are included.
func (c *Client) ListFolders(ctx context.Context, u *mailbox.User, parentID string) ([]mailbox.Folder, error) {
	var rawURL string
	if parentID == "" {
		rawURL = c.userURL(u.ID, "mailFolders") + includeHidden
	} else {
		rawURL = c.userURL(u.ID, "mailFolders", parentID, "childFolders") + includeHidden
	}

	var folders []mailbox.Folder
	err := foreachPage(ctx, c, instrumentation.OperationListFolders, rawURL, nil, func(f mailFolder) error {
		c.cacheFolderName(u.ID, f.ID, f.DisplayName)
		folders = append(folders, mailbox.Folder{
			ID:         f.ID,
			Name:       f.DisplayName,
			ChildCount: f.ChildFolderCount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// folderName resolves a folder id to its display name, once per client.
func (c *Client) folderName(ctx context.Context, u *mailbox.User, folderID string) (string, error) {
	key := u.ID + "/" + folderID

	c.mu.Lock()
	name, ok := c.folderNames[key]
	c.mu.Unlock()
	if ok {
		return name, nil
	}

	var f mailFolder
	rawURL := c.userURL(u.ID, "mailFolders", folderID) + includeHidden + "&$select=displayName"
	if err := c.get(ctx, instrumentation.OperationGetFolder, rawURL, nil, &f); err != nil {
		return "", err
	}
	c.cacheFolderName(u.ID, folderID, f.DisplayName)
	return f.DisplayName, nil
}

func (c *Client) cacheFolderName(userID, folderID, name string) {
	c.mu.Lock()
	c.folderNames[userID+"/"+folderID] = name
	c.mu.Unlock()
}
