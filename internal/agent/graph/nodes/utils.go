package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/bayline/server/internal/agent/model"
	logx "github.com/bayline/server/pkg/logger"
)

// normalizeToolCalls fills tool call IDs the provider omitted and turns a
// blank argument string into "{}" so the call can be replayed to the model.
func normalizeToolCalls(state *AppState, out *schema.Message) {
	for i := range out.ToolCalls {
		tc := &out.ToolCalls[i]
		if strings.TrimSpace(tc.ID) == "" {
			state.ToolCallIDSeq++
			tc.ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
		}
		if strings.TrimSpace(tc.Function.Arguments) == "" {
			tc.Function.Arguments = "{}"
		}
	}
}

// logUsage computes and logs usage cost, accumulating it into state.
func logUsage(ctx context.Context, state *AppState, node, modelName string, out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	state.TotalCostUSD += totalC

	logx.Ctx(ctx).Debug().
		Str("user_id", state.Request.UserID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", state.TotalCostUSD).
		Msg("LLM usage")
}
