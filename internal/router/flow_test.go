package router_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayline/server/internal/agent/dispatcher"
	"github.com/bayline/server/internal/agent/graph"
	"github.com/bayline/server/internal/agent/model"
	"github.com/bayline/server/internal/agent/repo"
	"github.com/bayline/server/internal/backend"
	"github.com/bayline/server/internal/router"
)

type cannedModel struct {
	mu     sync.Mutex
	out    []*schema.Message
	inputs [][]*schema.Message
}

func (m *cannedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	return m.out[len(m.inputs)-1], nil
}

func (m *cannedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

type replies struct {
	mu   sync.Mutex
	sent map[string]string
}

func (r *replies) Reply(_ context.Context, token, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent["reply:"+token] = text
	return nil
}

func (r *replies) Push(_ context.Context, userID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent["push:"+userID] = text
	return nil
}

func (r *replies) PromptDate(_ context.Context, token, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent["prompt:"+token] = text
	return nil
}

func TestDatePostbackWithoutSessionRunsFullTurn(t *testing.T) {
	var backendBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &backendBody)
		_, _ = w.Write([]byte(`{"slots":["10:00","15:00"]}`))
	}))
	defer srv.Close()

	intent := &cannedModel{out: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "c1",
			Function: schema.FunctionCall{Name: "get_availability_specific", Arguments: `{"date":"2024-03-10"}`},
		}}),
	}}
	second := &cannedModel{out: []*schema.Message{schema.AssistantMessage("On March 10 bays are free at 10:00 and 15:00.", nil)}}

	runner, err := graph.NewRunner(context.Background(), &graph.GraphConfig{
		IntentModel: intent,
		ReplyModel:  second,
		Gateway:     backend.NewGateway(srv.URL),
		Prompt:      &model.PromptConfig{BusinessType: "golf bay"},
		Now:         func() time.Time { return time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	sessions := repo.NewMemorySessionStore()
	sink := &replies{sent: map[string]string{}}
	r := router.New(sessions, dispatcher.New(runner, sessions, sink), nil)

	err = r.Route(context.Background(), router.Event{
		Kind:           router.KindPostback,
		UserID:         "U1",
		ReplyToken:     "rt-9",
		PostbackData:   router.PickDateAction,
		PostbackParams: map[string]string{"date": "2024-03-10"},
	})
	require.NoError(t, err)

	require.Len(t, intent.inputs, 1)
	turn := intent.inputs[0]
	require.Len(t, turn, 2)
	assert.Equal(t, schema.User, turn[1].Role)
	assert.Equal(t, "What is the availability on 2024-03-10?", turn[1].Content)

	assert.Equal(t, map[string]any{
		"events": []any{map[string]any{"message": map[string]any{
			"text": "availability_specific",
			"date": "2024-03-10",
		}}},
	}, backendBody)

	assert.Equal(t, map[string]string{"reply:rt-9": "On March 10 bays are free at 10:00 and 15:00."}, sink.sent)
	assert.Zero(t, sessions.Len())
}
