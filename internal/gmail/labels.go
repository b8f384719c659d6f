package gmail

import (
	"context"
	"sort"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
	"github.com/teemow/inboxscan/internal/mailbox"
)

// Labels that describe message state rather than location.
var stateLabels = map[string]bool{
	"UNREAD":              true,
	"STARRED":             true,
	"IMPORTANT":           true,
	"CATEGORY_PERSONAL":   true,
	"CATEGORY_SOCIAL":     true,
	"CATEGORY_PROMOTIONS": true,
	"CATEGORY_UPDATES":    true,
	"CATEGORY_FORUMS":     true,
}

// ListFolders implements mailbox.Source. Gmail labels are flat; nesting is
// expressed by "/" in label names, so the children of a label are the labels
// one level below its name.
func (c *Client) ListFolders(ctx context.Context, u *mailbox.User, parentID string) ([]mailbox.Folder, error) {
	svc, err := c.users(ctx, u.Address)
	if err != nil {
		return nil, err
	}
	names, err := c.labelNames(ctx, svc, u)
	if err != nil {
		return nil, err
	}

	prefix := ""
	if parentID != "" {
		parent, ok := names[parentID]
		if !ok {
			return nil, mailbox.ErrFolderNotFound
		}
		prefix = parent + "/"
	}

	var folders []mailbox.Folder
	for id, name := range names {
		if stateLabels[id] || !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.Contains(strings.TrimPrefix(name, prefix), "/") {
			continue
		}
		folders = append(folders, mailbox.Folder{
			ID:         id,
			Name:       name,
			ChildCount: childCount(names, name),
		})
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

func childCount(names map[string]string, parent string) int {
	n := 0
	prefix := parent + "/"
	for _, name := range names {
		rest, ok := strings.CutPrefix(name, prefix)
		if ok && rest != "" && !strings.Contains(rest, "/") {
			n++
		}
	}
	return n
}

// labelNames returns the label id to name map of u, fetched once.
func (c *Client) labelNames(ctx context.Context, svc *gmail.UsersService, u *mailbox.User) (map[string]string, error) {
	c.mu.Lock()
	names, ok := c.labels[u.ID]
	c.mu.Unlock()
	if ok {
		return names, nil
	}

	var res *gmail.ListLabelsResponse
	err := c.call(ctx, instrumentation.OperationListFolders, func() error {
		var err error
		res, err = svc.Labels.List("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	names = make(map[string]string, len(res.Labels))
	for _, l := range res.Labels {
		names[l.Id] = l.Name
	}
	c.mu.Lock()
	c.labels[u.ID] = names
	c.mu.Unlock()
	return names, nil
}

// primaryLabel picks the label that best stands for the message's folder:
// the first one that is not a state label.
func (c *Client) primaryLabel(ctx context.Context, svc *gmail.UsersService, u *mailbox.User, ids []string) (string, string) {
	var id string
	for _, l := range ids {
		if !stateLabels[l] {
			id = l
			break
		}
	}
	if id == "" {
		return "", ""
	}

	names, err := c.labelNames(ctx, svc, u)
	if err != nil {
		c.logger.Debug("could not resolve label names", logging.KeyError, err.Error())
		return id, id
	}
	if name, ok := names[id]; ok {
		return id, name
	}
	return id, id
}
