package push

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// maxMulticastTokens is the FCM limit on tokens per SendEachForMulticast call.
const maxMulticastTokens = 500

// MulticastClient is the subset of the FCM messaging client used by FCMSender.
type MulticastClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMSender sends notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client MulticastClient
}

// NewFCMSender creates a sender backed by an FCM messaging client.
func NewFCMSender(client MulticastClient) *FCMSender {
	return &FCMSender{client: client}
}

// SendMulticast implements Sender. Token lists longer than the FCM limit are
// sent in consecutive chunks and the results merged. A chunk whose request
// fails counts all its tokens as failed and the remaining chunks are still
// sent; the returned error then joins every chunk error.
func (s *FCMSender) SendMulticast(ctx context.Context, msg *Message) (*Result, error) {
	result := &Result{FailedTokens: []string{}}
	if len(msg.Tokens) == 0 {
		return result, nil
	}

	var errs []error
	for start := 0; start < len(msg.Tokens); start += maxMulticastTokens {
		end := start + maxMulticastTokens
		if end > len(msg.Tokens) {
			end = len(msg.Tokens)
		}
		tokens := msg.Tokens[start:end]

		resp, err := s.client.SendEachForMulticast(ctx, buildMulticast(msg, tokens))
		if err != nil {
			result.FailureCount += len(tokens)
			errs = append(errs, fmt.Errorf("failed to send multicast chunk %d: %w", start/maxMulticastTokens, err))
			continue
		}

		result.SuccessCount += resp.SuccessCount
		result.FailureCount += resp.FailureCount
		for i, r := range resp.Responses {
			if !r.Success && i < len(tokens) {
				result.FailedTokens = append(result.FailedTokens, tokens[i])
			}
		}
	}

	return result, errors.Join(errs...)
}

func buildMulticast(msg *Message, tokens []string) *messaging.MulticastMessage {
	badge := 1
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   msg.Data,
		Notification: &messaging.Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			ImageURL: msg.ImageURL,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:       "default",
				ClickAction: "FLUTTER_NOTIFICATION_CLICK",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
					Badge: &badge,
				},
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Icon:  "/icons/icon-192x192.png",
				Badge: "/icons/badge-72x72.png",
			},
			FCMOptions: &messaging.WebpushFCMOptions{
				Link: "/",
			},
		},
	}
}
