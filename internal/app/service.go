package app

import (
	"context"

	"support-agent/internal/ai"
	"support-agent/internal/kb"
)

// ChatRequest is one user turn. An empty SessionID starts a new session; the
// assigned ID comes back in the result and identifies the conversation on
// subsequent turns.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResult is the agent's reply plus the tool calls it made producing it.
type ChatResult struct {
	SessionID string        `json:"session_id"`
	Reply     string        `json:"reply"`
	ToolCalls []ai.ToolCall `json:"tool_calls"`
}

// HealthResult reports backing-store connectivity.
type HealthResult struct {
	Database      string             `json:"database"`
	KnowledgeBase kb.CollectionStatus `json:"knowledge_base"`
	Sessions      int                `json:"active_sessions"`
}

// ApplicationService is the single interface all adapters (web, REPL) call.
// It decouples presentation from the agent and session plumbing.
// Implementations must contain no display logic of any kind.
type ApplicationService interface {
	// Chat routes one user message through the session's agent.
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)

	// ClearSession drops a conversation. Returns false if the session did not
	// exist or had already expired.
	ClearSession(ctx context.Context, sessionID string) bool

	// Health reports database and knowledge-base connectivity.
	Health(ctx context.Context) *HealthResult

	// Welcome returns the greeting shown when a session starts.
	Welcome() string
}
