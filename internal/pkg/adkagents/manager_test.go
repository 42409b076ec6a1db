package adkagents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/config"
	mdl "github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/model"
)

// scriptedModel 按顺序返回预设回复的假模型
type scriptedModel struct {
	mu      sync.Mutex
	replies []func(input []*schema.Message) (*schema.Message, error)
	calls   int
	inputs  [][]*schema.Message
	tools   []*schema.ToolInfo
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	idx := m.calls
	m.calls++
	if idx >= len(m.replies) {
		return schema.AssistantMessage("done", nil), nil
	}
	return m.replies[idx](input)
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	m.tools = tools
	m.mu.Unlock()
	return m, nil
}

func reply(content string) func([]*schema.Message) (*schema.Message, error) {
	return func([]*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage(content, nil), nil
	}
}

type memoryStore struct{}

func (memoryStore) ListByCity(cityID int) ([]mdl.CityDocument, error) {
	return []mdl.CityDocument{{CityID: cityID, Section: "population", Content: "78,000 residents"}}, nil
}

func (memoryStore) SearchInCity(cityID int, keywords []string) ([]mdl.CityDocument, error) {
	return nil, nil
}

func newTestManager(t *testing.T, chatModel model.ToolCallingChatModel) *Manager {
	t.Helper()
	registry := NewRegistry()
	_, err := NewLoader(NewParser(ListTools()), registry).Load("")
	require.NoError(t, err)
	return NewManager(config.Default(), registry, chatModel, memoryStore{})
}

func TestManager_RunTaskReturnsLastContent(t *testing.T) {
	fake := &scriptedModel{replies: []func([]*schema.Message) (*schema.Message, error){
		reply("  Baytown City needs water for 78,000 residents.  "),
	}}
	m := newTestManager(t, fake)

	out, err := m.RunTask(context.Background(), Task{
		Role:     RoleNeedsAnalyst,
		CityID:   3,
		CityName: "Baytown City",
		Context:  `{"population": 78000}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Baytown City needs water for 78,000 residents.", out)

	require.NotEmpty(t, fake.inputs)
	var joined strings.Builder
	for _, msg := range fake.inputs[0] {
		joined.WriteString(msg.Content)
		joined.WriteString("\n")
	}
	assert.Contains(t, joined.String(), "Baytown City", "提示词应包含城市名")
	assert.Contains(t, joined.String(), `{"population": 78000}`, "提示词应包含上游输出")
	assert.NotContains(t, joined.String(), CityPlaceholder)
}

func TestManager_RunTaskExecutesTools(t *testing.T) {
	fake := &scriptedModel{replies: []func([]*schema.Message) (*schema.Message, error){
		func([]*schema.Message) (*schema.Message, error) {
			return schema.AssistantMessage("", []schema.ToolCall{{
				ID:   "call_1",
				Type: "function",
				Function: schema.FunctionCall{
					Name:      "estimate_food_needs",
					Arguments: `{"number": 10}`,
				},
			}}), nil
		},
		func(input []*schema.Message) (*schema.Message, error) {
			last := input[len(input)-1]
			return schema.AssistantMessage("Report: "+last.Content, nil), nil
		},
	}}
	m := newTestManager(t, fake)

	out, err := m.RunTask(context.Background(), Task{Role: RoleResourceAllocator, CityID: 3, CityName: "Baytown City"})
	require.NoError(t, err)
	assert.Equal(t, "Report: 30 apples, 20 bananas, and 10 oranges are needed for 10 people.", out)
	assert.Equal(t, 2, fake.calls)

	require.Len(t, fake.tools, 1, "资源分配 Agent 只绑定食物估算工具")
	assert.Equal(t, "estimate_food_needs", fake.tools[0].Name)
}

func TestManager_RunTaskErrors(t *testing.T) {
	failing := &scriptedModel{replies: []func([]*schema.Message) (*schema.Message, error){
		func([]*schema.Message) (*schema.Message, error) { return nil, errors.New("upstream unavailable") },
	}}
	m := newTestManager(t, failing)
	_, err := m.RunTask(context.Background(), Task{Role: RoleDamageAnalyser, CityID: 1, CityName: "Seabrook City"})
	assert.Error(t, err)

	empty := &scriptedModel{replies: []func([]*schema.Message) (*schema.Message, error){reply("   ")}}
	m = newTestManager(t, empty)
	_, err = m.RunTask(context.Background(), Task{Role: RoleDamageAnalyser, CityID: 1, CityName: "Seabrook City"})
	assert.True(t, errors.Is(err, ErrEmptyOutput), "空输出应返回 ErrEmptyOutput, got %v", err)

	_, err = m.RunTask(context.Background(), Task{Role: "poet"})
	assert.True(t, errors.Is(err, ErrAgentNotFound))
	assert.True(t, IsConfigError(err))
}

func TestProxyChatModel_RetriesAfterRateLimit(t *testing.T) {
	fake := &scriptedModel{replies: []func([]*schema.Message) (*schema.Message, error){
		func([]*schema.Message) (*schema.Message, error) {
			return nil, errors.New("status code: 429, Please try again in 5ms")
		},
		reply("ok"),
	}}
	proxy := NewProxyChatModel(fake, NewRateLimiter(), "test-model")

	msg, err := proxy.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, 2, fake.calls)
}

func TestProxyChatModel_DoesNotRetryOtherErrors(t *testing.T) {
	fake := &scriptedModel{replies: []func([]*schema.Message) (*schema.Message, error){
		func([]*schema.Message) (*schema.Message, error) { return nil, errors.New("invalid api key") },
		reply("ok"),
	}}
	proxy := NewProxyChatModel(fake, NewRateLimiter(), "test-model")

	_, err := proxy.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)
	assert.Equal(t, 1, fake.calls)

	withTools, err := proxy.WithTools(nil)
	require.NoError(t, err)
	assert.IsType(t, &ProxyChatModel{}, withTools)
}

func TestExceededIterations(t *testing.T) {
	assert.True(t, exceededIterations(adk.ErrExceedMaxIterations))
	assert.True(t, exceededIterations(fmt.Errorf("run agent: %w", adk.ErrExceedMaxIterations)))
	assert.True(t, exceededIterations(errors.New("[NodeRunError] exceeds max iterations")))
	assert.False(t, exceededIterations(errors.New("upstream unavailable")))
}
