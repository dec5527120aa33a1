package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/bayline/server/internal/agent/model"
)

//go:embed template/system_prompt.txt
var systemPrompt string

// RenderSystem renders the system turn for a request made at now.
// The date is taken from now on every call and never cached.
func RenderSystem(ctx context.Context, config model.PromptConfig, now time.Time) (string, error) {
	businessType := strings.TrimSpace(config.BusinessType)
	if businessType == "" {
		businessType = "golf bay"
	}

	// Render via Eino prompt component (Go template) to both format and emit callbacks
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(strings.TrimSpace(systemPrompt)),
	)
	vars := map[string]any{
		"BusinessType": businessType,
		"BusinessName": strings.TrimSpace(config.BusinessName),
		"Today":        now.Format("2006-01-02"),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}
