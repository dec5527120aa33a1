package line

import (
	"context"
	"errors"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayline/server/internal/router"
)

type fakeClient struct {
	replies   []*messaging_api.ReplyMessageRequest
	pushes    []*messaging_api.PushMessageRequest
	retryKeys []string
	err       error
}

func (c *fakeClient) ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error) {
	c.replies = append(c.replies, req)
	if c.err != nil {
		return nil, c.err
	}
	return &messaging_api.ReplyMessageResponse{}, nil
}

func (c *fakeClient) PushMessage(req *messaging_api.PushMessageRequest, key string) (*messaging_api.PushMessageResponse, error) {
	c.pushes = append(c.pushes, req)
	c.retryKeys = append(c.retryKeys, key)
	if c.err != nil {
		return nil, c.err
	}
	return &messaging_api.PushMessageResponse{}, nil
}

type outboundCounter map[string]int

func (o outboundCounter) ObserveOutbound(primitive, status string) { o[primitive+"/"+status]++ }

func TestReplySendsOneTextMessage(t *testing.T) {
	client := &fakeClient{}
	counts := outboundCounter{}
	m := NewMessenger(client, counts)

	require.NoError(t, m.Reply(context.Background(), "rt-1", "Bays are open."))

	require.Len(t, client.replies, 1)
	assert.Equal(t, "rt-1", client.replies[0].ReplyToken)
	require.Len(t, client.replies[0].Messages, 1)
	assert.Equal(t, messaging_api.TextMessage{Text: "Bays are open."}, client.replies[0].Messages[0])
	assert.Equal(t, 1, counts["reply/ok"])
}

func TestPushUsesFreshRetryKey(t *testing.T) {
	client := &fakeClient{}
	m := NewMessenger(client, nil)

	require.NoError(t, m.Push(context.Background(), "U1", "sorry"))
	require.NoError(t, m.Push(context.Background(), "U1", "sorry"))

	require.Len(t, client.pushes, 2)
	assert.Equal(t, "U1", client.pushes[0].To)
	assert.NotEmpty(t, client.retryKeys[0])
	assert.NotEqual(t, client.retryKeys[0], client.retryKeys[1])
}

func TestPromptDateSendsDatePicker(t *testing.T) {
	client := &fakeClient{}
	m := NewMessenger(client, nil)

	require.NoError(t, m.PromptDate(context.Background(), "rt-1", "Pick a date"))

	require.Len(t, client.replies, 1)
	tmpl, ok := client.replies[0].Messages[0].(*messaging_api.TemplateMessage)
	require.True(t, ok)
	buttons, ok := tmpl.Template.(*messaging_api.ButtonsTemplate)
	require.True(t, ok)
	assert.Equal(t, "Pick a date", buttons.Text)
	require.Len(t, buttons.Actions, 1)
	picker, ok := buttons.Actions[0].(*messaging_api.DatetimePickerAction)
	require.True(t, ok)
	assert.Equal(t, router.PickDateAction, picker.Data)
	assert.Equal(t, messaging_api.DatetimePickerActionMODE_DATE, picker.Mode)
}

func TestSendFailureIsReturnedAndCounted(t *testing.T) {
	client := &fakeClient{err: errors.New("invalid reply token")}
	counts := outboundCounter{}
	m := NewMessenger(client, counts)

	err := m.Reply(context.Background(), "rt-1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reply token")
	assert.Equal(t, 1, counts["reply/error"])
}
