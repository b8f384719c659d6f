package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"time"

	"github.com/jhillyerd/enmime"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
	"github.com/teemow/inboxscan/internal/mailbox"
	"github.com/teemow/inboxscan/internal/scanner"
)

// ForeachMessage implements mailbox.Source. folderID is a label id.
func (c *Client) ForeachMessage(ctx context.Context, u *mailbox.User, folderID string, fn mailbox.MessageFunc) error {
	svc, err := c.users(ctx, u.Address)
	if err != nil {
		return err
	}

	pageToken := ""
	for {
		var res *gmail.ListMessagesResponse
		err := c.call(ctx, instrumentation.OperationListMessages, func() error {
			req := svc.Messages.List("me").Context(ctx)
			if folderID != "" {
				req = req.LabelIds(folderID)
			}
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return err
		}

		for _, ref := range res.Messages {
			if err := ctx.Err(); err != nil {
				return err
			}
			msg, err := c.getMessage(ctx, svc, u, ref.Id)
			if err != nil {
				// A single unreadable message does not end the traversal.
				c.logger.Warn("skipping unreadable message",
					logging.KeyMessageID, ref.Id,
					logging.KeyError, err.Error())
				continue
			}
			c.metrics.RecordMessageScanned(ctx, instrumentation.ServiceGmail)
			if err := fn(msg); err != nil {
				return err
			}
		}

		if res.NextPageToken == "" {
			return nil
		}
		pageToken = res.NextPageToken
	}
}

// ListAttachments implements mailbox.Source. Attachments parsed while walking
// the mailbox are handed out once; otherwise the message is fetched again.
func (c *Client) ListAttachments(ctx context.Context, u *mailbox.User, msg *mailbox.Message) ([]scanner.Attachment, error) {
	key := pendingKey(u, msg.ID)
	c.mu.Lock()
	atts, ok := c.pending[key]
	delete(c.pending, key)
	c.mu.Unlock()
	if ok {
		return atts, nil
	}

	svc, err := c.users(ctx, u.Address)
	if err != nil {
		return nil, err
	}
	env, _, err := c.fetchEnvelope(ctx, svc, msg.ID, instrumentation.OperationListAttachments)
	if err != nil {
		return nil, err
	}
	return attachments(env), nil
}

func (c *Client) getMessage(ctx context.Context, svc *gmail.UsersService, u *mailbox.User, id string) (*mailbox.Message, error) {
	env, raw, err := c.fetchEnvelope(ctx, svc, id, instrumentation.OperationGetMessage)
	if err != nil {
		return nil, err
	}

	msg := &mailbox.Message{
		ID:      id,
		Subject: env.GetHeader("Subject"),
		Body:    env.Text,
	}
	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		msg.Sender = from[0].Address
	}
	if to, err := env.AddressList("To"); err == nil {
		msg.Recipients = addresses(to)
	}
	if raw.InternalDate > 0 {
		msg.ReceivedAt = time.UnixMilli(raw.InternalDate).UTC()
	}
	msg.FolderID, msg.Folder = c.primaryLabel(ctx, svc, u, raw.LabelIds)

	if atts := attachments(env); len(atts) > 0 {
		msg.HasAttachments = true
		c.mu.Lock()
		c.pending[pendingKey(u, id)] = atts
		c.mu.Unlock()
	}
	return msg, nil
}

func (c *Client) fetchEnvelope(ctx context.Context, svc *gmail.UsersService, id, operation string) (*enmime.Envelope, *gmail.Message, error) {
	var raw *gmail.Message
	err := c.call(ctx, operation, func() error {
		var err error
		raw, err = svc.Messages.Get("me", id).Format("raw").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	data, err := decodeRaw(raw.Raw)
	if err != nil {
		return nil, nil, fmt.Errorf("message %s: %w", id, err)
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("message %s: parse MIME: %w", id, err)
	}
	return env, raw, nil
}

// decodeRaw decodes the base64url RFC 822 payload, padded or not.
func decodeRaw(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode raw message: %w", err)
	}
	return data, nil
}

// attachments turns the file parts of env into descriptors.
func attachments(env *enmime.Envelope) []scanner.Attachment {
	var out []scanner.Attachment
	for _, parts := range [][]*enmime.Part{env.Attachments, env.Inlines} {
		for _, p := range parts {
			if p.FileName == "" || len(p.Content) == 0 {
				continue
			}
			out = append(out, scanner.Attachment{
				Name:         p.FileName,
				ContentType:  p.ContentType,
				ContentBytes: base64.StdEncoding.EncodeToString(p.Content),
			})
		}
	}
	return out
}

func addresses(list []*mail.Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out
}

func pendingKey(u *mailbox.User, id string) string {
	return u.ID + "/" + id
}
