package main

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"

	webAdapter "support-agent/internal/adapters/web"
	"support-agent/internal/ai"
	"support-agent/internal/app"
	"support-agent/internal/core"
	"support-agent/internal/db"
	"support-agent/internal/kb"
	"support-agent/internal/logging"
)

func main() {
	_ = godotenv.Load()
	log := logging.New()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	client, configured := ai.NewClient(os.Getenv("OPENAI_API_KEY"))
	if !configured {
		log.Warn("OPENAI_API_KEY is not set; agent replies will be degraded")
	}

	// Qdrant is optional: without it the agent runs, just without retrieval.
	var kbStore *kb.Store
	if configured {
		kbStore, err = kb.NewStoreFromEnv(kb.NewOpenAIEmbedder(client), log)
		if err != nil && err != kb.ErrNotConnected {
			log.Error("qdrant connection failed", "error", err)
			os.Exit(1)
		}
	}
	if kbStore == nil {
		log.Warn("qdrant is not configured; knowledge base search is disabled")
	} else {
		defer kbStore.Close()
	}

	services := ai.Services{
		Products: core.NewProductService(pool, log),
		Orders:   core.NewOrderService(pool, log),
		Shipping: core.NewShippingService(pool, log),
		Tickets:  core.NewTicketService(pool, log),
		Returns:  core.NewReturnService(pool, log),
	}
	if kbStore != nil {
		services.KB = kbStore
	}
	toolset := ai.NewSupportToolset(services, log)

	agentCfg := ai.AgentConfig{Model: openai.ChatModel(os.Getenv("OPENAI_MODEL"))}
	if v := os.Getenv("AGENT_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Error("invalid AGENT_MAX_ITERATIONS", "value", v)
			os.Exit(1)
		}
		agentCfg.MaxIterations = n
	}

	newAgent := func() *ai.Agent {
		var cc ai.CompletionClient
		if configured {
			cc = &client.Chat.Completions
		}
		var sops *ai.SOPInjector
		if kbStore != nil {
			sops = ai.NewSOPInjector(kbStore, log)
		}
		return ai.NewAgent(cc, toolset, sops, agentCfg, log)
	}

	svc := app.NewAppService(ctx, pool, kbStore, newAgent, log)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	handler := webAdapter.NewHandler(svc, os.Getenv("ALLOWED_ORIGINS"), log)

	log.Info("server starting", "port", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
