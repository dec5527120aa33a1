package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/bayline/server/internal/backend"
)

// scriptedModel replays one response per Generate call and records inputs.
type scriptedModel struct {
	mu        sync.Mutex
	responses []scriptedResponse
	inputs    [][]*schema.Message
}

type scriptedResponse struct {
	msg *schema.Message
	err error
}

func newScriptedModel(responses ...scriptedResponse) *scriptedModel {
	return &scriptedModel{responses: responses}
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]*schema.Message, len(input))
	copy(cp, input)
	m.inputs = append(m.inputs, cp)

	step := len(m.inputs)
	if step > len(m.responses) {
		return nil, fmt.Errorf("script exhausted at step %d", step)
	}
	r := m.responses[step-1]
	return r.msg, r.err
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

func (m *scriptedModel) lastInput() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[len(m.inputs)-1]
}

type gatewayCall struct {
	cmd  backend.Command
	date *time.Time
}

type fakeGateway struct {
	mu     sync.Mutex
	result backend.Result
	calls  []gatewayCall
}

func (g *fakeGateway) Query(_ context.Context, cmd backend.Command, date *time.Time) backend.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{cmd: cmd, date: date})
	return g.result
}

func reply(text string) scriptedResponse {
	return scriptedResponse{msg: schema.AssistantMessage(text, nil)}
}

func selectFunction(name, args string, id string) scriptedResponse {
	return scriptedResponse{msg: schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})}
}

func fail(err error) scriptedResponse {
	return scriptedResponse{err: err}
}
