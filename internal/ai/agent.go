package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// llmTimeout bounds a single model call; tool executions carry their own
// shorter timeout.
const llmTimeout = 60 * time.Second

const defaultMaxIterations = 5

const (
	notConfiguredMessage = "Error: OpenAI API key not configured. Please set OPENAI_API_KEY environment variable."
	emptyResponseMessage = "I apologize, but I'm having trouble generating a response."
	iterationCapMessage  = "I apologize, but I'm having trouble completing this request. Let me create a support ticket for you."
)

// CompletionClient is the slice of the OpenAI chat API the agent uses.
type CompletionClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ToolCall records one executed tool call for the reply trace.
type ToolCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Result    map[string]any `json:"result"`
}

// AgentConfig tunes a conversation agent. Zero values use the defaults
// (gpt-4o, five loop iterations).
type AgentConfig struct {
	Model         openai.ChatModel
	MaxIterations int
}

// Agent runs the tool-calling conversation loop for one chat session. It
// holds the session transcript, so a single Agent serves a single customer
// conversation.
type Agent struct {
	client        CompletionClient
	toolset       *Toolset
	sops          *SOPInjector
	model         openai.ChatModel
	maxIterations int
	log           *slog.Logger

	mu      sync.Mutex
	history []openai.ChatCompletionMessageParamUnion
}

func NewAgent(client CompletionClient, toolset *Toolset, sops *SOPInjector, cfg AgentConfig, log *slog.Logger) *Agent {
	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Agent{
		client:        client,
		toolset:       toolset,
		sops:          sops,
		model:         model,
		maxIterations: maxIterations,
		log:           log,
	}
}

// NewClient builds the OpenAI client used for both completions and
// embeddings. An empty API key yields a degraded client whose agent answers
// with a configuration error instead of panicking at startup.
func NewClient(apiKey string) (openai.Client, bool) {
	if apiKey == "" {
		return openai.Client{}, false
	}
	return openai.NewClient(option.WithAPIKey(apiKey)), true
}

// Chat processes one user message. It loops over model calls, executing any
// requested tools and feeding results back, until the model produces a plain
// reply or the iteration cap is hit. The returned trace lists every tool call
// made for this message in execution order.
func (a *Agent) Chat(ctx context.Context, userMessage string) (string, []ToolCall, error) {
	if a.client == nil {
		return notConfiguredMessage, nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(SystemPrompt)}
	prefix := 1
	if a.sops != nil {
		if sops := a.sops.RelevantProcedures(ctx, userMessage); sops != "" {
			messages = append(messages, openai.SystemMessage(sops))
			prefix = 2
		}
	}
	messages = append(messages, a.history...)
	messages = append(messages, openai.UserMessage(userMessage))

	tools := a.toolset.OpenAITools()

	var trace []ToolCall
	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		callCtx, cancel := context.WithTimeout(ctx, llmTimeout)
		completion, err := a.client.New(callCtx, openai.ChatCompletionNewParams{
			Model:    a.model,
			Messages: messages,
			Tools:    tools,
		})
		cancel()
		if err != nil {
			return "", trace, fmt.Errorf("chat completion failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", trace, fmt.Errorf("chat completion returned no choices")
		}

		msg := completion.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			reply := msg.Content
			if reply == "" {
				reply = emptyResponseMessage
			}
			messages = append(messages, msg.ToParam())
			a.history = messages[prefix:]
			return reply, trace, nil
		}

		messages = append(messages, msg.ToParam())
		for _, tc := range msg.ToolCalls {
			name := tc.Function.Name
			rawArgs := json.RawMessage(tc.Function.Arguments)

			result := a.toolset.Execute(ctx, name, rawArgs)
			trace = append(trace, ToolCall{
				Tool:      name,
				Arguments: parseArguments(rawArgs),
				Result:    result,
			})

			payload, err := json.Marshal(result)
			if err != nil {
				payload = []byte(`{"success":false,"error":"failed to encode tool result"}`)
			}
			messages = append(messages, openai.ToolMessage(string(payload), tc.ID))
		}
	}

	a.log.Warn("iteration cap reached", "max_iterations", a.maxIterations, "tool_calls", len(trace))
	messages = append(messages, openai.AssistantMessage(iterationCapMessage))
	a.history = messages[prefix:]
	return iterationCapMessage, trace, nil
}

func parseArguments(raw json.RawMessage) map[string]any {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{"_raw": string(raw)}
	}
	return args
}
