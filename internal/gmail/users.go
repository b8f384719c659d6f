package gmail

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/inboxscan/internal/auth"
	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/mailbox"
)

// ResolveUser implements mailbox.Source. The mailbox is impersonated and its
// profile read; a missing mailbox or a subject the service account may not
// impersonate both count as not found.
func (c *Client) ResolveUser(ctx context.Context, address string) (*mailbox.User, error) {
	svc, err := c.users(ctx, address)
	if err != nil {
		return nil, err
	}

	var email string
	err = c.call(ctx, instrumentation.OperationGetUser, func() error {
		p, err := svc.GetProfile("me").Context(ctx).Do()
		if err != nil {
			return err
		}
		email = p.EmailAddress
		return nil
	})
	switch {
	case isNotFound(err):
		return nil, fmt.Errorf("%w: %w", mailbox.ErrUserNotFound, err)
	case errors.Is(err, auth.ErrTokenAcquisition):
		return nil, fmt.Errorf("%w: %w", mailbox.ErrUserNotFound, err)
	case err != nil:
		return nil, err
	}

	if email == "" {
		email = address
	}
	return &mailbox.User{ID: email, Address: email}, nil
}
