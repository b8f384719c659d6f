package graph

import (
	"context"
	"fmt"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/mailbox"
)

type user struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// ResolveUser implements mailbox.Source.
func (c *Client) ResolveUser(ctx context.Context, address string) (*mailbox.User, error) {
	var u user
	err := c.get(ctx, instrumentation.OperationGetUser, c.userURL(address), nil, &u)
	if IsNotFound(err) {
		return nil, fmt.Errorf("%w: %w", mailbox.ErrUserNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, fmt.Errorf("graph %s: response has no user id", instrumentation.OperationGetUser)
	}

	addr := u.Mail
	if addr == "" {
		addr = u.UserPrincipalName
	}
	if addr == "" {
		addr = address
	}
	return &mailbox.User{ID: u.ID, Address: addr, DisplayName: u.DisplayName}, nil
}
