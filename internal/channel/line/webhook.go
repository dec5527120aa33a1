package line

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	errx "github.com/bayline/server/internal/core/error"
	"github.com/bayline/server/internal/router"
	logx "github.com/bayline/server/pkg/logger"
)

// EventRouter receives each classified event.
type EventRouter interface {
	Route(ctx context.Context, ev router.Event) error
}

// WebhookHandler verifies and parses LINE callbacks.
type WebhookHandler struct {
	secret string
	router EventRouter
}

func NewWebhookHandler(channelSecret string, r EventRouter) *WebhookHandler {
	return &WebhookHandler{secret: channelSecret, router: r}
}

// ServeHTTP answers 400 on a bad signature, 500 on any processing failure
// and 200 once every event has been handled.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logx.Ctx(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("LINE webhook panicked")
			writeStatus(w, errx.New(nil, http.StatusInternalServerError, errx.SystemErrorMessage))
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read LINE webhook body")
		writeStatus(w, err)
		return
	}
	log.Debug().Bytes("body", body).Msg("LINE webhook received")
	r.Body = io.NopCloser(bytes.NewReader(body))

	cb, err := webhook.ParseRequest(h.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			log.Warn().Msg("LINE webhook signature rejected")
			writeStatus(w, errx.Signature(err))
			return
		}
		log.Error().Err(err).Msg("Failed to parse LINE webhook")
		writeStatus(w, err)
		return
	}

	for _, raw := range cb.Events {
		if err := h.router.Route(ctx, ToEvent(raw)); err != nil {
			log.Error().Err(err).Msg("Failed to handle LINE event")
			writeStatus(w, err)
			return
		}
	}
	writeStatus(w, nil)
}

func writeStatus(w http.ResponseWriter, err error) {
	status, msg := errx.StatusOf(err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// ToEvent classifies a LINE SDK event.
func ToEvent(raw webhook.EventInterface) router.Event {
	switch e := raw.(type) {
	case webhook.MessageEvent:
		ev := router.Event{Kind: router.KindUnknown, UserID: userID(e.Source), ReplyToken: e.ReplyToken}
		if msg, ok := e.Message.(webhook.TextMessageContent); ok {
			ev.Kind = router.KindText
			ev.Text = msg.Text
		}
		return ev
	case webhook.PostbackEvent:
		ev := router.Event{Kind: router.KindPostback, UserID: userID(e.Source), ReplyToken: e.ReplyToken}
		if e.Postback != nil {
			ev.PostbackData = e.Postback.Data
			ev.PostbackParams = e.Postback.Params
		}
		return ev
	default:
		return router.Event{Kind: router.KindUnknown}
	}
}

func userID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	default:
		return ""
	}
}
