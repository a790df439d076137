package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"support-agent/internal/app"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	switch args[0] {
	case "ask", "a":
		if len(args) < 2 {
			log.Fatal("Usage: chat ask \"<question>\"")
		}
		result, err := svc.Chat(ctx, app.ChatRequest{Message: args[1]})
		if err != nil {
			log.Fatalf("Agent error: %v", err)
		}
		for _, call := range result.ToolCalls {
			fmt.Fprintf(os.Stderr, "[tool] %s\n", call.Tool)
		}
		fmt.Println(result.Reply)

	case "health":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(svc.Health(ctx))

	default:
		log.Fatalf("Unknown command: %s\nAvailable: ask, health", args[0])
	}
}
