package graph

import (
	"context"
	"fmt"
	"time"

	logx "github.com/bayline/server/pkg/logger"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	"github.com/bayline/server/internal/agent/graph/nodes"
	"github.com/bayline/server/internal/agent/graph/observers"
	"github.com/bayline/server/internal/agent/model"
)

// Runner executes one conversation turn: resolve intent, dispatch at most one
// function, and resolve again over the merged transcript.
type Runner interface {
	Invoke(ctx context.Context, in model.Request) (model.Outcome, error)
}

// Config holds everything needed to compose the turn graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the Gemini ChatModels.
type Config struct {
	APIKey      string
	BaseURL     string
	IntentModel model.IntentModelConfig
	ReplyModel  model.ReplyModelConfig
	Prompt      model.PromptConfig
	Gateway     nodes.AvailabilityQuerier
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	IntentModel     einomodel.BaseChatModel // must already carry the function declarations
	ReplyModel      einomodel.BaseChatModel
	IntentModelName string
	ReplyModelName  string
	Gateway         nodes.AvailabilityQuerier
	Prompt          *model.PromptConfig
	Now             func() time.Time
}

// GraphBuilder handles the construction of the turn graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.Request, model.Outcome]
}

type graphRunner struct {
	runnable compose.Runnable[model.Request, model.Outcome]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.Request) (model.Outcome, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return model.Outcome{State: model.StateFailed, Text: model.ApologyText}, fmt.Errorf("invoke turn graph: %w", err)
	}
	return out, nil
}

// BuildTurnGraph constructs the Gemini models and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("backend gateway is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		IntentConfig: &cfg.IntentModel,
		ReplyConfig:  &cfg.ReplyModel,
	})
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Prompt.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid PROMPT_TIMEZONE %q: %w", cfg.Prompt.Timezone, err)
	}

	runner, err := NewRunner(ctx, &GraphConfig{
		IntentModel:     cms.Intent,
		ReplyModel:      cms.Reply,
		IntentModelName: cms.IntentModelName,
		ReplyModelName:  cms.ReplyModelName,
		Gateway:         cfg.Gateway,
		Prompt:          &cfg.Prompt,
		Now:             func() time.Time { return time.Now().In(loc) },
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn graph built successfully")
	return runner, nil
}

// NewRunner compiles the graph over already constructed models.
func NewRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled turn graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.Request, model.Outcome], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.IntentModel == nil || config.ReplyModel == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Gateway == nil {
		return nil, fmt.Errorf("backend gateway is nil")
	}
	if config.Prompt == nil {
		return nil, fmt.Errorf("prompt config is nil")
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.Request, model.Outcome](
			compose.WithGenLocalState(func(ctx context.Context) *nodes.AppState {
				return &nodes.AppState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	adds := []error{
		b.graph.AddLambdaNode(nodes.NodeTranscript,
			nodes.NewTranscriptNode(b.config.Prompt, b.config.Now),
		),
		b.graph.AddChatModelNode(nodes.NodeIntentModel,
			b.config.IntentModel,
			compose.WithStatePostHandler(nodes.NewIntentModelPostHandler(b.config.IntentModelName)),
		),
		b.graph.AddLambdaNode(nodes.NodeDirectAnswer, nodes.NewDirectAnswerNode()),
		b.graph.AddLambdaNode(nodes.NodeDispatcher, nodes.NewDispatcherNode(b.config.Gateway)),
		b.graph.AddLambdaNode(nodes.NodeTerminal, nodes.NewTerminalNode()),
		b.graph.AddLambdaNode(nodes.NodeMerge, nodes.NewMergeNode()),
		b.graph.AddChatModelNode(nodes.NodeReplyModel,
			b.config.ReplyModel,
			compose.WithStatePostHandler(nodes.NewReplyModelPostHandler(b.config.ReplyModelName)),
		),
		b.graph.AddLambdaNode(nodes.NodeFinalAnswer, nodes.NewFinalAnswerNode()),
	}
	for _, err := range adds {
		if err != nil {
			logx.Error().Err(err).Msg("Error adding node")
			return fmt.Errorf("error adding node: %w", err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeTranscript},
		{nodes.NodeTranscript, nodes.NodeIntentModel},
		{nodes.NodeDirectAnswer, compose.END},
		{nodes.NodeTerminal, compose.END},
		{nodes.NodeMerge, nodes.NodeReplyModel},
		{nodes.NodeReplyModel, nodes.NodeFinalAnswer},
		{nodes.NodeFinalAnswer, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s->%s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	intentBranch := compose.NewGraphBranch(
		nodes.NewIntentCondition(),
		map[string]bool{
			nodes.NodeDirectAnswer: true,
			nodes.NodeDispatcher:   true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeIntentModel, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}

	dispatchBranch := compose.NewGraphBranch(
		nodes.NewDispatchCondition(),
		map[string]bool{
			nodes.NodeTerminal: true,
			nodes.NodeMerge:    true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeDispatcher, dispatchBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding dispatch branch")
		return fmt.Errorf("error adding dispatch branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.Request, model.Outcome], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(20))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
