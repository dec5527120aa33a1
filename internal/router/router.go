// Package router classifies inbound platform events and hands them to the
// turn dispatcher.
package router

import (
	"context"
	"strings"

	"github.com/bayline/server/internal/agent/model"
	logx "github.com/bayline/server/pkg/logger"
)

// PickDateAction is the postback data carried by the date picker.
const PickDateAction = "action=pick_date"

type Kind string

const (
	KindText     Kind = "text"
	KindPostback Kind = "postback"
	KindUnknown  Kind = "unknown"
)

// Event is a platform-neutral inbound event.
type Event struct {
	Kind           Kind
	UserID         string
	ReplyToken     string
	Text           string
	PostbackData   string
	PostbackParams map[string]string
}

// Handler is the set of turn entry points the router routes to.
type Handler interface {
	HandleMessage(ctx context.Context, req model.Request) error
	HandleDateInput(ctx context.Context, req model.Request, date string) error
	PromptForDate(ctx context.Context, req model.Request) error
}

// Observer counts routed events.
type Observer interface {
	ObserveInbound(kind string)
}

type Router struct {
	sessions model.SessionStore
	handler  Handler
	observer Observer
}

func New(sessions model.SessionStore, handler Handler, observer Observer) *Router {
	return &Router{sessions: sessions, handler: handler, observer: observer}
}

// Route sends ev to exactly one entry point, or drops it when it is not
// something the bridge answers.
func (r *Router) Route(ctx context.Context, ev Event) error {
	if r.observer != nil {
		r.observer.ObserveInbound(string(ev.Kind))
	}
	log := logx.Ctx(ctx).With().Str("user_id", ev.UserID).Str("kind", string(ev.Kind)).Logger()

	if ev.UserID == "" || ev.ReplyToken == "" {
		log.Debug().Msg("Dropping event without user or reply token")
		return nil
	}
	req := model.Request{UserID: ev.UserID, ReplyToken: ev.ReplyToken}

	switch ev.Kind {
	case KindText:
		if r.awaitingDate(ctx, ev.UserID) {
			log.Debug().Msg("Session awaits a date; treating text as date input")
			return r.handler.HandleDateInput(ctx, req, ev.Text)
		}
		req.Text = strings.TrimSpace(ev.Text)
		return r.handler.HandleMessage(ctx, req)

	case KindPostback:
		date := strings.TrimSpace(ev.PostbackParams["date"])
		if ev.PostbackData == PickDateAction && date != "" {
			return r.handler.HandleDateInput(ctx, req, date)
		}
		log.Debug().Str("data", ev.PostbackData).Msg("Postback without a picked date; prompting again")
		return r.handler.PromptForDate(ctx, req)

	default:
		log.Debug().Msg("Ignoring unsupported event")
		return nil
	}
}

// awaitingDate reports whether the user's session waits for a date.
// Store failures are logged and read as no session.
func (r *Router) awaitingDate(ctx context.Context, userID string) bool {
	s, ok, err := r.sessions.Get(ctx, userID)
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("Session lookup failed")
		return false
	}
	return ok && s.Awaiting == model.AwaitingDateInput
}
