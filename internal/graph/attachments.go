package graph

import (
	"context"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/mailbox"
	"github.com/teemow/inboxscan/internal/scanner"
)

const fileAttachmentType = "#microsoft.graph.fileAttachment"

type attachment struct {
	ODataType    string `json:"@odata.type"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	ContentBytes string `json:"contentBytes"`
}

// ListAttachments implements mailbox.Source. Item and reference attachments
// carry no file content and are left out.
func (c *Client) ListAttachments(ctx context.Context, u *mailbox.User, msg *mailbox.Message) ([]scanner.Attachment, error) {
	rawURL := c.userURL(u.ID, "messages", msg.ID, "attachments")

	var out []scanner.Attachment
	err := foreachPage(ctx, c, instrumentation.OperationListAttachments, rawURL, nil, func(a attachment) error {
		if a.ODataType != "" && a.ODataType != fileAttachmentType {
			return nil
		}
		if a.ContentBytes == "" {
			return nil
		}
		out = append(out, scanner.Attachment{
			Name:         a.Name,
			ContentType:  a.ContentType,
			ContentBytes: a.ContentBytes,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
