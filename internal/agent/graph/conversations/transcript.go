package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/bayline/server/internal/agent/graph/prompts"
	"github.com/bayline/server/internal/agent/model"
)

var ErrOrphanFunctionResult = errors.New("function result without matching function call")

// Transcript is the ordered turn list of one request. It holds exactly one
// system turn, first, and is discarded once the reply is sent.
type Transcript struct {
	messages []*schema.Message
}

// Start renders the system turn for now and appends the user turn.
func Start(ctx context.Context, cfg model.PromptConfig, now time.Time, userText string) (*Transcript, error) {
	system, err := prompts.RenderSystem(ctx, cfg, now)
	if err != nil {
		return nil, err
	}
	return &Transcript{
		messages: []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage(strings.TrimSpace(userText)),
		},
	}, nil
}

// Messages returns a copy of the turn list.
func (t *Transcript) Messages() []*schema.Message {
	out := make([]*schema.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// AppendFunctionCall adds the assistant turn that selected call.
func (t *Transcript) AppendFunctionCall(call schema.ToolCall) {
	t.messages = append(t.messages, schema.AssistantMessage("", []schema.ToolCall{call}))
}

// AppendFunctionResult adds the result of the function selected by the previous turn.
// The previous turn must be an assistant turn calling the same function id and name.
func (t *Transcript) AppendFunctionResult(callID, name, content string) error {
	if len(t.messages) == 0 {
		return ErrOrphanFunctionResult
	}
	last := t.messages[len(t.messages)-1]
	if last.Role != schema.Assistant || !callsFunction(last, callID, name) {
		return fmt.Errorf("%w: %s", ErrOrphanFunctionResult, name)
	}
	t.messages = append(t.messages, &schema.Message{
		Role:       schema.Tool,
		Content:    content,
		ToolCallID: callID,
		ToolName:   name,
	})
	return nil
}

func callsFunction(m *schema.Message, callID, name string) bool {
	for _, tc := range m.ToolCalls {
		if tc.ID == callID && tc.Function.Name == name {
			return true
		}
	}
	return false
}
