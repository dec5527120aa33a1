package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/bayline/server/internal/agent/graph/conversations"
	"github.com/bayline/server/internal/agent/graph/tools"
	"github.com/bayline/server/internal/agent/model"
	"github.com/bayline/server/internal/backend"
	errx "github.com/bayline/server/internal/core/error"
	logx "github.com/bayline/server/pkg/logger"
)

// AvailabilityQuerier is the Backend Gateway as seen by the dispatcher node.
type AvailabilityQuerier interface {
	Query(ctx context.Context, cmd backend.Command, date *time.Time) backend.Result
}

// NewTranscriptNode starts the transcript for the request: one system turn
// rendered with the date at call time, then the user turn.
func NewTranscriptNode(cfg *model.PromptConfig, now func() time.Time) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.Request) ([]*schema.Message, error) {
		tr, err := conversations.Start(ctx, *cfg, now(), in.Text)
		if err != nil {
			return nil, fmt.Errorf("start transcript: %w", err)
		}
		err = compose.ProcessState(ctx, func(_ context.Context, state *AppState) error {
			state.Request = in
			state.Transcript = tr
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return tr.Messages(), nil
	})
}

// NewIntentModelPostHandler logs usage and enforces the single-selection contract:
// only the first function selection of a turn is honoured.
func NewIntentModelPostHandler(modelName string) func(context.Context, *schema.Message, *AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *AppState) (*schema.Message, error) {
		if out == nil {
			return nil, errors.New("intent model returned no message")
		}
		logUsage(ctx, state, NodeIntentModel, modelName, out)

		if len(out.ToolCalls) > 1 {
			logx.Ctx(ctx).Warn().
				Str("user_id", state.Request.UserID).
				Int("tool_count", len(out.ToolCalls)).
				Str("kept", out.ToolCalls[0].Function.Name).
				Msg("Model selected several functions; keeping the first")
			out.ToolCalls = out.ToolCalls[:1]
		}
		normalizeToolCalls(state, out)
		return out, nil
	}
}

// NewIntentCondition routes to the dispatcher when a function was selected.
func NewIntentCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, in *schema.Message) (string, error) {
		if len(in.ToolCalls) > 0 {
			logx.Ctx(ctx).Debug().Str("function", in.ToolCalls[0].Function.Name).Msg("Routing to FunctionDispatcher")
			return NodeDispatcher, nil
		}
		logx.Ctx(ctx).Debug().Msg("No function call - direct answer")
		return NodeDirectAnswer, nil
	}
}

// NewDirectAnswerNode relays the model's text verbatim.
func NewDirectAnswerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *schema.Message) (model.Outcome, error) {
		text := in.Content
		if strings.TrimSpace(text) == "" {
			text = model.DirectFallbackText
		}
		return model.Outcome{State: model.StateDirect, Text: text}, nil
	})
}

// NewDispatcherNode decodes the selection and queries the backend.
// Unknown names and unusable dates end the turn without a backend call.
func NewDispatcherNode(gw AvailabilityQuerier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *schema.Message) (Dispatch, error) {
		tc := in.ToolCalls[0]
		name := tc.Function.Name

		call, err := tools.Decode(name, tc.Function.Arguments)
		switch {
		case errors.Is(err, errx.ErrUnknownFunction):
			logx.Ctx(ctx).Warn().Str("function", name).Msg("Model selected an undeclared function")
			return Dispatch{Outcome: &model.Outcome{State: model.StateUnknownFunction, Text: model.RefusalText, Function: name}}, nil
		case err != nil:
			logx.Ctx(ctx).Info().Err(err).Str("function", name).Msg("Date needed before dispatch")
			return Dispatch{Outcome: &model.Outcome{State: model.StateAwaitDate, Text: model.DatePromptText, Function: name}}, nil
		}

		state := dispatchState(call)
		res := gw.Query(ctx, call.Command(), call.Date())
		logx.Ctx(ctx).Debug().
			Str("function", name).
			Str("state", string(state)).
			Bool("backend_ok", res.OK()).
			Msg("Backend queried")

		err = compose.ProcessState(ctx, func(_ context.Context, s *AppState) error {
			s.Function = name
			s.Dispatched = state
			return nil
		})
		if err != nil {
			return Dispatch{}, fmt.Errorf("failed to access state: %w", err)
		}
		return Dispatch{Call: tc, Response: res.FunctionResponse()}, nil
	})
}

// NewDispatchCondition ends terminal dispatches, merges the rest.
func NewDispatchCondition() func(context.Context, Dispatch) (string, error) {
	return func(ctx context.Context, in Dispatch) (string, error) {
		if in.Outcome != nil {
			return NodeTerminal, nil
		}
		return NodeMerge, nil
	}
}

// NewTerminalNode emits a terminal dispatch outcome.
func NewTerminalNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in Dispatch) (model.Outcome, error) {
		return *in.Outcome, nil
	})
}

// NewMergeNode folds the selection and its result into the transcript and
// hands the extended transcript to the reply model.
func NewMergeNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in Dispatch) ([]*schema.Message, error) {
		var msgs []*schema.Message
		err := compose.ProcessState(ctx, func(_ context.Context, state *AppState) error {
			if state.Transcript == nil {
				return errors.New("missing transcript in state")
			}
			state.Transcript.AppendFunctionCall(in.Call)
			if err := state.Transcript.AppendFunctionResult(in.Call.ID, in.Call.Function.Name, in.Response); err != nil {
				return err
			}
			msgs = state.Transcript.Messages()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("merge function result: %w", err)
		}
		return msgs, nil
	})
}

// NewReplyModelPostHandler logs usage of the second turn.
func NewReplyModelPostHandler(modelName string) func(context.Context, *schema.Message, *AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *AppState) (*schema.Message, error) {
		if out == nil {
			return nil, errors.New("reply model returned no message")
		}
		logUsage(ctx, state, NodeReplyModel, modelName, out)
		return out, nil
	}
}

// NewFinalAnswerNode turns the second-turn message into the final reply.
// An empty reply counts as a failed provider call.
func NewFinalAnswerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *schema.Message) (model.Outcome, error) {
		if strings.TrimSpace(in.Content) == "" {
			return model.Outcome{}, errx.Provider("reply turn", errors.New("empty completion"))
		}
		out := model.Outcome{State: model.StateMergeAndResolve, Text: in.Content}
		_ = compose.ProcessState(ctx, func(_ context.Context, state *AppState) error {
			out.Function = state.Function
			out.Dispatched = state.Dispatched
			return nil
		})
		return out, nil
	})
}

func dispatchState(call tools.Call) model.State {
	switch call.(type) {
	case tools.AvailabilityToday:
		return model.StateDispatchToday
	case tools.AvailabilityTomorrow:
		return model.StateDispatchTomorrow
	default:
		return model.StateDispatchSpecific
	}
}
