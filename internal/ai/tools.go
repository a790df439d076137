package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// toolTimeout bounds a single tool execution against the database or the
// vector store.
const toolTimeout = 10 * time.Second

// ToolHandler executes one tool call. Raw JSON arguments come straight from
// the model; the returned map is the result envelope sent back to it.
// A non-nil error is converted into a failure envelope by Execute.
type ToolHandler func(ctx context.Context, args json.RawMessage) (map[string]any, error)

// ToolDefinition describes a single tool exposed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any // JSON Schema for the tool's input parameters
	Handler     ToolHandler
}

// Toolset holds the tools available to the agent and dispatches calls to
// them. Every Execute result is an envelope with a "success" flag, so the
// model always receives a well-formed outcome even when a handler fails.
type Toolset struct {
	tools []ToolDefinition
	log   *slog.Logger
}

func NewToolset(log *slog.Logger) *Toolset {
	return &Toolset{log: log}
}

// Register adds a tool to the set.
func (t *Toolset) Register(def ToolDefinition) {
	t.tools = append(t.tools, def)
}

// Get returns the ToolDefinition for a given tool name, and whether it was found.
func (t *Toolset) Get(name string) (ToolDefinition, bool) {
	for _, def := range t.tools {
		if def.Name == name {
			return def, true
		}
	}
	return ToolDefinition{}, false
}

// Names lists the registered tool names in registration order.
func (t *Toolset) Names() []string {
	names := make([]string, 0, len(t.tools))
	for _, def := range t.tools {
		names = append(names, def.Name)
	}
	return names
}

// OpenAITools converts the set to the Chat Completions tool format.
func (t *Toolset) OpenAITools() []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(t.tools))
	for _, def := range t.tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  shared.FunctionParameters(def.InputSchema),
			},
		})
	}
	return out
}

// Execute runs the named tool with the model-supplied arguments. Unknown
// tools, malformed arguments, handler errors, and panics all come back as
// failure envelopes rather than Go errors, mirroring what the model can act on.
func (t *Toolset) Execute(ctx context.Context, name string, args json.RawMessage) (result map[string]any) {
	def, ok := t.Get(name)
	if !ok {
		t.log.Warn("unknown tool requested", "tool", name)
		return failure(fmt.Sprintf("Unknown tool: %s", name))
	}

	defer func() {
		if r := recover(); r != nil {
			t.log.Error("tool panicked", "tool", name, "panic", r)
			result = failure(fmt.Sprintf("Error executing %s: internal error", name))
		}
	}()

	if msg := validateRequired(def.InputSchema, args); msg != "" {
		t.log.Warn("invalid tool arguments", "tool", name, "error", msg)
		return failure(fmt.Sprintf("Invalid arguments for %s: %s", name, msg))
	}

	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	t.log.Info("executing tool", "tool", name)
	t.log.Debug("tool arguments", "tool", name, "args", string(args))

	res, err := def.Handler(ctx, args)
	if err != nil {
		t.log.Error("tool failed", "tool", name, "error", err)
		return failure(err.Error())
	}

	success, _ := res["success"].(bool)
	t.log.Info("tool completed", "tool", name, "success", success)
	return res
}

func failure(message string) map[string]any {
	return map[string]any{"success": false, "error": message}
}

// validateRequired checks the argument object against the schema's required
// list before the handler runs. Without this gate a missing field would decode
// to its zero value and slip into the store as empty data.
func validateRequired(schema map[string]any, args json.RawMessage) string {
	required, _ := schema["required"].([]any)
	if len(required) == 0 {
		return ""
	}

	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	var supplied map[string]json.RawMessage
	if err := json.Unmarshal(args, &supplied); err != nil {
		return fmt.Sprintf("invalid JSON: %v", err)
	}

	var missing []string
	for _, field := range required {
		name, ok := field.(string)
		if !ok {
			continue
		}
		if _, ok := supplied[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "missing required field(s): " + strings.Join(missing, ", ")
	}
	return ""
}

// decodeArgs parses tool arguments into a typed struct. An empty argument
// string is treated as an empty object, which some models send for tools
// with no required parameters.
func decodeArgs(args json.RawMessage, dst any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// reflectSchema derives the JSON Schema for a tool's argument struct.
// Fields tagged omitempty become optional; everything else is required.
func reflectSchema(v any) map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal tool schema: %v", err))
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("failed to decode tool schema: %v", err))
	}
	// The reflector adds metadata keys the tools API does not want.
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
