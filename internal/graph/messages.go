package graph

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
	"github.com/teemow/inboxscan/internal/mailbox"
)

var messageFields = []string{
	"id", "subject", "bodyPreview", "sender", "toRecipients",
	"receivedDateTime", "parentFolderId", "hasAttachments",
}

type emailAddress struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type message struct {
	ID               string         `json:"id"`
	Subject          string         `json:"subject"`
	BodyPreview      string         `json:"bodyPreview"`
	Body             *itemBody      `json:"body,omitempty"`
	Sender           *emailAddress  `json:"sender,omitempty"`
	ToRecipients     []emailAddress `json:"toRecipients"`
	ReceivedDateTime string         `json:"receivedDateTime"`
	ParentFolderID   string         `json:"parentFolderId"`
	HasAttachments   bool           `json:"hasAttachments"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// ForeachMessage implements mailbox.Source.
func (c *Client) ForeachMessage(ctx context.Context, u *mailbox.User, folderID string, fn mailbox.MessageFunc) error {
	var rawURL string
	if folderID == "" {
		rawURL = c.userURL(u.ID, "messages")
	} else {
		rawURL = c.userURL(u.ID, "mailFolders", folderID, "messages")
	}

	fields := messageFields
	var header http.Header
	if c.fullBody {
		fields = append(append([]string(nil), messageFields...), "body")
		header = http.Header{"Prefer": []string{`outlook.body-content-type="text"`}}
	}
	rawURL += "?" + url.Values{"$select": []string{strings.Join(fields, ",")}}.Encode()

	return foreachPage(ctx, c, instrumentation.OperationListMessages, rawURL, header, func(m message) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.metrics.RecordMessageScanned(ctx, instrumentation.ServiceGraph)
		return fn(c.toMessage(ctx, u, m))
	})
}

func (c *Client) toMessage(ctx context.Context, u *mailbox.User, m message) *mailbox.Message {
	out := &mailbox.Message{
		ID:             m.ID,
		Subject:        m.Subject,
		Body:           m.BodyPreview,
		FolderID:       m.ParentFolderID,
		HasAttachments: m.HasAttachments,
	}
	if m.Body != nil && m.Body.Content != "" {
		out.Body = m.Body.Content
	}
	if m.Sender != nil {
		out.Sender = m.Sender.EmailAddress.Address
	}
	for _, r := range m.ToRecipients {
		out.Recipients = append(out.Recipients, r.EmailAddress.Address)
	}
	if t, err := time.Parse(time.RFC3339, m.ReceivedDateTime); err == nil {
		out.ReceivedAt = t
	}
	if m.ParentFolderID != "" {
		name, err := c.folderName(ctx, u, m.ParentFolderID)
		if err != nil {
			c.logger.Debug("could not resolve folder name",
				logging.KeyMessageID, m.ID,
				logging.KeyError, err.Error())
		}
		out.Folder = name
	}
	return out
}
