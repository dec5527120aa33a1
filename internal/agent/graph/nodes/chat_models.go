package nodes

import (
	"context"
	"fmt"

	logx "github.com/bayline/server/pkg/logger"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/bayline/server/internal/agent/graph/tools"
	"github.com/bayline/server/internal/agent/model"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey       string
	BaseURL      string
	IntentConfig *model.IntentModelConfig
	ReplyConfig  *model.ReplyModelConfig
}

// ChatModels holds the tool-bound intent model and the plain reply model.
type ChatModels struct {
	Intent          einomodel.BaseChatModel
	Reply           einomodel.BaseChatModel
	IntentModelName string
	ReplyModelName  string
}

// NewChatModels creates both Gemini chat models and binds the availability
// declarations to the intent model only.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.IntentConfig == nil || config.ReplyConfig == nil {
		return nil, fmt.Errorf("chat model configs are nil")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	intent, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.IntentConfig.Model,
		Temperature: &config.IntentConfig.Temperature,
		MaxTokens:   &config.IntentConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, fmt.Errorf("error creating intent model: %w", err)
	}

	reply, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.ReplyConfig.Model,
		Temperature: &config.ReplyConfig.Temperature,
		MaxTokens:   &config.ReplyConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating reply model")
		return nil, fmt.Errorf("error creating reply model: %w", err)
	}

	bound, err := BindDeclarations(intent)
	if err != nil {
		return nil, err
	}

	return &ChatModels{
		Intent:          bound,
		Reply:           reply,
		IntentModelName: config.IntentConfig.Model,
		ReplyModelName:  config.ReplyConfig.Model,
	}, nil
}

// BindDeclarations returns a copy of cm that offers the availability functions
// with automatic selection.
func BindDeclarations(cm einomodel.ToolCallingChatModel) (einomodel.ToolCallingChatModel, error) {
	bound, err := cm.WithTools(tools.Declarations())
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return nil, fmt.Errorf("failed to bind tools: %w", err)
	}
	logx.Debug().Msg("Successfully bound availability tools to intent model")
	return bound, nil
}
