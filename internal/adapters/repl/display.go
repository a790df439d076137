package repl

import (
	"encoding/json"
	"fmt"
	"strings"

	"support-agent/internal/ai"
	"support-agent/internal/app"
)

// printToolCalls renders the tool-call trace for one reply.
func printToolCalls(calls []ai.ToolCall) {
	for _, call := range calls {
		success, _ := call.Result["success"].(bool)
		status := "ok"
		if !success {
			status = "failed"
		}
		fmt.Printf("  [tool] %s (%s)\n", call.Tool, status)
		if msg, ok := call.Result["message"].(string); ok && msg != "" {
			fmt.Printf("         %s\n", firstLine(msg))
		}
		if errMsg, ok := call.Result["error"].(string); ok && errMsg != "" {
			fmt.Printf("         error: %s\n", errMsg)
		}
	}
}

func printHealth(res *app.HealthResult) {
	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
