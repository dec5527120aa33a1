package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bayline/server/internal/agent/model"
	logx "github.com/bayline/server/pkg/logger"
)

// TurnRunner runs one conversation turn.
type TurnRunner interface {
	Invoke(ctx context.Context, in model.Request) (model.Outcome, error)
}

// Observer receives one call per finished turn.
type Observer interface {
	ObserveOutcome(state, dispatched string, seconds float64)
}

// Dispatcher turns graph outcomes into replies and session writes.
type Dispatcher struct {
	runner   TurnRunner
	sessions model.SessionStore
	sink     model.ReplySink
	observer Observer
	now      func() time.Time
}

type Option func(*Dispatcher)

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

func New(runner TurnRunner, sessions model.SessionStore, sink model.ReplySink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		runner:   runner,
		sessions: sessions,
		sink:     sink,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleMessage runs a turn for a plain text message and answers with the
// event's reply token.
func (d *Dispatcher) HandleMessage(ctx context.Context, req model.Request) error {
	req.Text = strings.TrimSpace(req.Text)
	out := d.run(ctx, req)

	if out.State == model.StateAwaitDate {
		return d.awaitDate(ctx, req, out.Text)
	}
	d.reply(ctx, req, out.Text)
	return nil
}

// HandleDateInput clears the user's session, then re-enters the turn with a
// synthesized question for date. A failed re-entry is reported by push since
// the reply token may already be spent.
func (d *Dispatcher) HandleDateInput(ctx context.Context, req model.Request, date string) error {
	log := logx.Ctx(ctx)
	if err := d.sessions.Delete(ctx, req.UserID); err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to clear session")
	}

	req.Text = fmt.Sprintf(model.DateQuestionFormat, strings.TrimSpace(date))
	out := d.run(ctx, req)

	switch out.State {
	case model.StateFailed:
		if err := d.sink.Push(ctx, req.UserID, out.Text); err != nil {
			log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to push apology")
		}
		return nil
	case model.StateAwaitDate:
		return d.awaitDate(ctx, req, out.Text)
	default:
		d.reply(ctx, req, out.Text)
		return nil
	}
}

// PromptForDate re-issues the date picker without running a turn.
func (d *Dispatcher) PromptForDate(ctx context.Context, req model.Request) error {
	return d.awaitDate(ctx, req, model.DatePromptText)
}

func (d *Dispatcher) run(ctx context.Context, req model.Request) model.Outcome {
	start := d.now()
	out, err := d.runner.Invoke(ctx, req)
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("user_id", req.UserID).Msg("Turn failed")
		out = model.Outcome{State: model.StateFailed, Text: model.ApologyText}
	}
	if d.observer != nil {
		d.observer.ObserveOutcome(string(out.State), string(out.Dispatched), d.now().Sub(start).Seconds())
	}
	logx.Ctx(ctx).Info().
		Str("user_id", req.UserID).
		Str("state", string(out.State)).
		Str("function", out.Function).
		Str("dispatched", string(out.Dispatched)).
		Msg("Turn finished")
	return out
}

func (d *Dispatcher) reply(ctx context.Context, req model.Request, text string) {
	if err := d.sink.Reply(ctx, req.ReplyToken, text); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("user_id", req.UserID).Msg("Failed to send reply")
	}
}

// awaitDate sends the picker and marks the session as waiting for a date.
func (d *Dispatcher) awaitDate(ctx context.Context, req model.Request, text string) error {
	if text == "" {
		text = model.DatePromptText
	}
	if err := d.sink.PromptDate(ctx, req.ReplyToken, text); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("user_id", req.UserID).Msg("Failed to send date picker")
	}
	if err := d.sessions.Set(ctx, req.UserID, model.Session{Awaiting: model.AwaitingDateInput}); err != nil {
		return fmt.Errorf("mark session awaiting date: %w", err)
	}
	return nil
}
