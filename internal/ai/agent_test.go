package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"support-agent/internal/ai"
	"support-agent/internal/kb"
)

// fakeCompletionClient replays canned completions and captures every request.
// When more calls arrive than responses exist, the last response repeats.
type fakeCompletionClient struct {
	responses []*openai.ChatCompletion
	calls     []openai.ChatCompletionNewParams
	err       error
}

func (f *fakeCompletionClient) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.calls = append(f.calls, body)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.calls) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func textCompletion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Content: content},
		}},
	}
}

func toolCompletion(callID, name, arguments string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{{
					ID:   callID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      name,
						Arguments: arguments,
					},
				}},
			},
		}},
	}
}

func echoToolset(t *testing.T) *ai.Toolset {
	t.Helper()
	ts := ai.NewToolset(testLogger())
	ts.Register(ai.ToolDefinition{
		Name: "echo",
		Handler: func(ctx context.Context, args json.RawMessage) (map[string]any, error) {
			return map[string]any{"success": true, "echoed": string(args)}, nil
		},
	})
	return ts
}

func TestAgent_NotConfigured(t *testing.T) {
	agent := ai.NewAgent(nil, echoToolset(t), nil, ai.AgentConfig{}, testLogger())

	reply, trace, err := agent.Chat(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !strings.Contains(reply, "OPENAI_API_KEY") {
		t.Errorf("Expected configuration error message, got %q", reply)
	}
	if len(trace) != 0 {
		t.Errorf("Expected no tool calls, got %v", trace)
	}
}

func TestAgent_PlainReply(t *testing.T) {
	client := &fakeCompletionClient{responses: []*openai.ChatCompletion{textCompletion("Hello!")}}
	agent := ai.NewAgent(client, echoToolset(t), nil, ai.AgentConfig{}, testLogger())

	reply, trace, err := agent.Chat(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "Hello!" {
		t.Errorf("Expected Hello!, got %q", reply)
	}
	if len(trace) != 0 {
		t.Errorf("Expected empty trace, got %v", trace)
	}
	if len(client.calls) != 1 {
		t.Fatalf("Expected 1 completion call, got %d", len(client.calls))
	}

	req := client.calls[0]
	if len(req.Messages) != 2 {
		t.Fatalf("Expected system + user message, got %d messages", len(req.Messages))
	}
	if req.Messages[0].OfSystem == nil {
		t.Error("First message must be the system prompt")
	}
	if req.Messages[1].OfUser == nil {
		t.Error("Last message must be the user turn")
	}
	if len(req.Tools) == 0 {
		t.Error("Tools must be offered on every completion call")
	}
}

func TestAgent_ToolDispatch(t *testing.T) {
	client := &fakeCompletionClient{responses: []*openai.ChatCompletion{
		toolCompletion("call_1", "echo", `{"value":"hi"}`),
		textCompletion("Done."),
	}}
	agent := ai.NewAgent(client, echoToolset(t), nil, ai.AgentConfig{}, testLogger())

	reply, trace, err := agent.Chat(context.Background(), "run the tool")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "Done." {
		t.Errorf("Expected Done., got %q", reply)
	}
	if len(trace) != 1 {
		t.Fatalf("Expected 1 traced tool call, got %d", len(trace))
	}
	if trace[0].Tool != "echo" {
		t.Errorf("Expected echo, got %s", trace[0].Tool)
	}
	if trace[0].Arguments["value"] != "hi" {
		t.Errorf("Arguments not parsed: %v", trace[0].Arguments)
	}
	if success, _ := trace[0].Result["success"].(bool); !success {
		t.Errorf("Expected successful result, got %v", trace[0].Result)
	}

	// The second completion call must carry the tool result paired to the
	// originating call ID.
	if len(client.calls) != 2 {
		t.Fatalf("Expected 2 completion calls, got %d", len(client.calls))
	}
	var toolMsgFound bool
	for _, m := range client.calls[1].Messages {
		if m.OfTool != nil && m.OfTool.ToolCallID == "call_1" {
			toolMsgFound = true
		}
	}
	if !toolMsgFound {
		t.Error("No tool message with matching call ID in follow-up request")
	}
}

func TestAgent_EmptyReplyFallback(t *testing.T) {
	client := &fakeCompletionClient{responses: []*openai.ChatCompletion{textCompletion("")}}
	agent := ai.NewAgent(client, echoToolset(t), nil, ai.AgentConfig{}, testLogger())

	reply, _, err := agent.Chat(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !strings.Contains(reply, "trouble generating a response") {
		t.Errorf("Expected fallback apology, got %q", reply)
	}
}

func TestAgent_IterationCap(t *testing.T) {
	client := &fakeCompletionClient{responses: []*openai.ChatCompletion{
		toolCompletion("call_1", "echo", `{}`),
	}}
	agent := ai.NewAgent(client, echoToolset(t), nil, ai.AgentConfig{MaxIterations: 3}, testLogger())

	reply, trace, err := agent.Chat(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !strings.Contains(reply, "support ticket") {
		t.Errorf("Expected iteration cap apology, got %q", reply)
	}
	if len(client.calls) != 3 {
		t.Errorf("Expected exactly 3 completion calls, got %d", len(client.calls))
	}
	if len(trace) != 3 {
		t.Errorf("Expected 3 traced tool calls, got %d", len(trace))
	}
}

func TestAgent_CompletionError(t *testing.T) {
	client := &fakeCompletionClient{err: errors.New("rate limited")}
	agent := ai.NewAgent(client, echoToolset(t), nil, ai.AgentConfig{}, testLogger())

	_, _, err := agent.Chat(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("Expected wrapped completion error, got %v", err)
	}
}

func TestAgent_HistoryCarriesAcrossTurns(t *testing.T) {
	client := &fakeCompletionClient{responses: []*openai.ChatCompletion{textCompletion("reply")}}
	agent := ai.NewAgent(client, echoToolset(t), nil, ai.AgentConfig{}, testLogger())

	if _, _, err := agent.Chat(context.Background(), "first"); err != nil {
		t.Fatalf("First chat failed: %v", err)
	}
	if _, _, err := agent.Chat(context.Background(), "second"); err != nil {
		t.Fatalf("Second chat failed: %v", err)
	}

	// Second request: system + first user + first assistant + second user.
	if got := len(client.calls[1].Messages); got != 4 {
		t.Errorf("Expected 4 messages on second turn, got %d", got)
	}
	// The system prompt is re-sent fresh each turn, never duplicated.
	var systemCount int
	for _, m := range client.calls[1].Messages {
		if m.OfSystem != nil {
			systemCount++
		}
	}
	if systemCount != 1 {
		t.Errorf("Expected exactly 1 system message, got %d", systemCount)
	}
}

func TestAgent_SOPInjection(t *testing.T) {
	searcher := &fakeSearcher{
		docs: map[string][]kb.Document{
			"agent-sop-order-status": {{Title: "Status SOP", Content: "Ask for the order number."}},
		},
	}
	client := &fakeCompletionClient{responses: []*openai.ChatCompletion{textCompletion("ok")}}
	agent := ai.NewAgent(client, echoToolset(t),
		ai.NewSOPInjector(searcher, testLogger()), ai.AgentConfig{}, testLogger())

	if _, _, err := agent.Chat(context.Background(), "track my package"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	req := client.calls[0]
	var systemContents []string
	for _, m := range req.Messages {
		if m.OfSystem != nil {
			systemContents = append(systemContents, m.OfSystem.Content.OfString.Value)
		}
	}
	if len(systemContents) != 2 {
		t.Fatalf("Expected main prompt plus SOP message, got %d system messages", len(systemContents))
	}
	if !strings.Contains(systemContents[1], "RELEVANT PROCEDURES") ||
		!strings.Contains(systemContents[1], "Ask for the order number.") {
		t.Errorf("SOP message malformed: %q", systemContents[1])
	}

	// The injected SOP must not leak into the durable history: the next turn
	// re-derives it from scratch.
	if _, _, err := agent.Chat(context.Background(), "thanks"); err != nil {
		t.Fatalf("Second chat failed: %v", err)
	}
	var secondTurnSystems int
	for _, m := range client.calls[1].Messages {
		if m.OfSystem != nil {
			secondTurnSystems++
		}
	}
	if secondTurnSystems != 1 {
		t.Errorf("Expected 1 system message on non-matching turn, got %d", secondTurnSystems)
	}
}
