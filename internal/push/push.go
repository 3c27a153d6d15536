// Package push delivers multicast push notifications.
package push

import (
	"context"
	"errors"
)

// ErrDisabled is returned by the Disabled sender.
var ErrDisabled = errors.New("push delivery is not configured")

// Message is a notification addressed to a set of device tokens.
type Message struct {
	Tokens   []string
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

// Result reports per-token delivery of a multicast send.
type Result struct {
	SuccessCount int
	// FailureCount includes tokens of batches that could not be sent at all.
	FailureCount int

	// FailedTokens lists tokens the provider rejected individually, for later
	// pruning. Tokens of a failed batch are not listed: they may still be valid.
	FailedTokens []string
}

// Sender sends one message to many devices. When part of a send fails,
// SendMulticast may return a non-nil Result describing what was delivered
// together with a non-nil error.
type Sender interface {
	SendMulticast(ctx context.Context, msg *Message) (*Result, error)
}

// Disabled is a Sender that fails every send with ErrDisabled.
type Disabled struct{}

// SendMulticast implements Sender.
func (Disabled) SendMulticast(ctx context.Context, msg *Message) (*Result, error) {
	return nil, ErrDisabled
}
