// Package line adapts the LINE Messaging API to the bridge's reply sink and
// event router.
package line

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/bayline/server/internal/router"
	logx "github.com/bayline/server/pkg/logger"
)

const (
	datePickerLabel = "Select date"
	datePickerAlt   = "Select a date"
)

// Client is the subset of the LINE Messaging API used by Messenger.
type Client interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
	PushMessage(req *messaging_api.PushMessageRequest, xLineRetryKey string) (*messaging_api.PushMessageResponse, error)
}

// Observer counts outbound sends.
type Observer interface {
	ObserveOutbound(primitive, status string)
}

// Messenger sends replies, pushes, and date pickers. Each call is one
// outbound platform request with no retry.
type Messenger struct {
	client   Client
	observer Observer
}

func NewMessenger(client Client, observer Observer) *Messenger {
	return &Messenger{client: client, observer: observer}
}

// NewClient builds the production Messaging API client.
func NewClient(channelToken string) (*messaging_api.MessagingApiAPI, error) {
	client, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("line messaging client: %w", err)
	}
	return client, nil
}

func (m *Messenger) Reply(ctx context.Context, replyToken, text string) error {
	_, err := m.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	return m.done(ctx, "reply", err)
}

func (m *Messenger) Push(ctx context.Context, userID, text string) error {
	_, err := m.client.PushMessage(&messaging_api.PushMessageRequest{
		To: userID,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	}, uuid.NewString())
	return m.done(ctx, "push", err)
}

// PromptDate replies with a buttons template holding a single date picker.
func (m *Messenger) PromptDate(ctx context.Context, replyToken, text string) error {
	_, err := m.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			&messaging_api.TemplateMessage{
				AltText: datePickerAlt,
				Template: &messaging_api.ButtonsTemplate{
					Text: text,
					Actions: []messaging_api.ActionInterface{
						&messaging_api.DatetimePickerAction{
							Label: datePickerLabel,
							Data:  router.PickDateAction,
							Mode:  messaging_api.DatetimePickerActionMODE_DATE,
						},
					},
				},
			},
		},
	})
	return m.done(ctx, "prompt_date", err)
}

func (m *Messenger) done(ctx context.Context, primitive string, err error) error {
	status := "ok"
	if err != nil {
		status = "error"
		logx.Ctx(ctx).Warn().Err(err).Str("primitive", primitive).Msg("LINE send failed")
	}
	if m.observer != nil {
		m.observer.ObserveOutbound(primitive, status)
	}
	if err != nil {
		return fmt.Errorf("line %s: %w", primitive, err)
	}
	return nil
}
