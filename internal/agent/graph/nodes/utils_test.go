package nodes

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeToolCalls(t *testing.T) {
	state := &AppState{}
	out := schema.AssistantMessage("", []schema.ToolCall{
		{Function: schema.FunctionCall{Name: "get_availability_today", Arguments: ""}},
		{ID: "keep", Function: schema.FunctionCall{Name: "get_availability_specific", Arguments: `{"date":"2024-03-10"}`}},
		{Function: schema.FunctionCall{Name: "get_availability_tomorrow", Arguments: "  "}},
	})

	normalizeToolCalls(state, out)

	assert.Equal(t, "call_1", out.ToolCalls[0].ID)
	assert.Equal(t, "{}", out.ToolCalls[0].Function.Arguments)
	assert.Equal(t, "keep", out.ToolCalls[1].ID)
	assert.Equal(t, `{"date":"2024-03-10"}`, out.ToolCalls[1].Function.Arguments)
	assert.Equal(t, "call_2", out.ToolCalls[2].ID)
	assert.Equal(t, "{}", out.ToolCalls[2].Function.Arguments)
	assert.Equal(t, 2, state.ToolCallIDSeq)
}
