package repl

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"support-agent/internal/app"
)

// Run starts the interactive chat loop.
// It reads lines from reader, dispatches slash commands deterministically,
// and routes everything else through the support agent.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader) {
	fmt.Println("Protis Customer Support")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Println(svc.Welcome())
	fmt.Println("Type /help for commands, /quit to exit.")
	fmt.Println(strings.Repeat("-", 70))

	sessionID := ""

	for {
		fmt.Print("\nyou> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			switch strings.ToLower(strings.TrimPrefix(input, "/")) {
			case "help":
				printHelp()
			case "health":
				printHealth(svc.Health(ctx))
			case "clear":
				if sessionID != "" {
					svc.ClearSession(ctx, sessionID)
					sessionID = ""
				}
				fmt.Println("Conversation cleared.")
			case "quit", "exit", "q":
				fmt.Println("Goodbye!")
				return
			default:
				fmt.Println("Unknown command. Type /help for commands.")
			}
			continue
		}

		result, err := svc.Chat(ctx, app.ChatRequest{SessionID: sessionID, Message: input})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		sessionID = result.SessionID

		printToolCalls(result.ToolCalls)
		fmt.Printf("\nagent> %s\n", result.Reply)
	}
}

func printHelp() {
	fmt.Println(`Commands:
  /help     show this help
  /health   show database and knowledge base status
  /clear    start a fresh conversation
  /quit     exit

Anything else is sent to the support agent.`)
}
