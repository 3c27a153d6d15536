package push

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMulticast struct {
	calls     []*messaging.MulticastMessage
	failOn    map[string]bool
	err       error
	errOnCall map[int]error
}

func (f *fakeMulticast) SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.calls = append(f.calls, msg)
	if f.err != nil {
		return nil, f.err
	}
	if err := f.errOnCall[len(f.calls)]; err != nil {
		return nil, err
	}

	resp := &messaging.BatchResponse{}
	for _, tok := range msg.Tokens {
		if f.failOn[tok] {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Error: errors.New("unregistered")})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: "m-" + tok})
	}
	return resp, nil
}

func TestFCMSender_SendMulticast(t *testing.T) {
	fake := &fakeMulticast{failOn: map[string]bool{"tok-b": true}}
	sender := NewFCMSender(fake)

	res, err := sender.SendMulticast(context.Background(), &Message{
		Tokens: []string{"tok-a", "tok-b", "tok-c"},
		Title:  "Hello",
		Body:   "World",
		Data:   map[string]string{"type": "test"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, []string{"tok-b"}, res.FailedTokens)

	require.Len(t, fake.calls, 1)
	sent := fake.calls[0]
	assert.Equal(t, "Hello", sent.Notification.Title)
	assert.Equal(t, "test", sent.Data["type"])
	assert.Equal(t, "high", sent.Android.Priority)
	assert.Equal(t, 1, *sent.APNS.Payload.Aps.Badge)
	assert.Equal(t, "/", sent.Webpush.FCMOptions.Link)
}

func TestFCMSender_ChunksLargeTokenLists(t *testing.T) {
	fake := &fakeMulticast{}
	sender := NewFCMSender(fake)

	tokens := make([]string, maxMulticastTokens+20)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}

	res, err := sender.SendMulticast(context.Background(), &Message{Tokens: tokens})
	require.NoError(t, err)
	assert.Equal(t, len(tokens), res.SuccessCount)
	require.Len(t, fake.calls, 2)
	assert.Len(t, fake.calls[0].Tokens, maxMulticastTokens)
	assert.Len(t, fake.calls[1].Tokens, 20)
}

func TestFCMSender_NoTokens(t *testing.T) {
	fake := &fakeMulticast{}
	res, err := NewFCMSender(fake).SendMulticast(context.Background(), &Message{})
	require.NoError(t, err)
	assert.Zero(t, res.SuccessCount)
	assert.Empty(t, fake.calls)
}

func TestFCMSender_PropagatesTransportError(t *testing.T) {
	fake := &fakeMulticast{err: errors.New("quota exceeded")}
	_, err := NewFCMSender(fake).SendMulticast(context.Background(), &Message{Tokens: []string{"tok"}})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestFCMSender_KeepsDeliveredChunksWhenLaterChunkFails(t *testing.T) {
	fake := &fakeMulticast{
		failOn:    map[string]bool{"tok-3": true},
		errOnCall: map[int]error{2: errors.New("quota exceeded")},
	}

	tokens := make([]string, maxMulticastTokens+100)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}

	res, err := NewFCMSender(fake).SendMulticast(context.Background(), &Message{Tokens: tokens})
	assert.ErrorContains(t, err, "quota exceeded")
	require.NotNil(t, res)
	assert.Equal(t, maxMulticastTokens-1, res.SuccessCount)
	assert.Equal(t, 101, res.FailureCount)
	assert.Equal(t, []string{"tok-3"}, res.FailedTokens)
	assert.Len(t, fake.calls, 2)
}

func TestFCMSender_ContinuesAfterFailedChunk(t *testing.T) {
	fake := &fakeMulticast{errOnCall: map[int]error{1: errors.New("unavailable")}}

	tokens := make([]string, maxMulticastTokens+10)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}

	res, err := NewFCMSender(fake).SendMulticast(context.Background(), &Message{Tokens: tokens})
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 10, res.SuccessCount)
	assert.Equal(t, maxMulticastTokens, res.FailureCount)
	assert.Empty(t, res.FailedTokens)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.SendMulticast(context.Background(), &Message{Tokens: []string{"tok"}})
	assert.ErrorIs(t, err, ErrDisabled)
}
