package ai

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"support-agent/internal/kb"
)

// sopKeywordRules maps message phrases to the tools a reply will likely use.
// Matching is substring-based on the lowercased message.
var sopKeywordRules = []struct {
	keywords []string
	tools    []string
}{
	{[]string{"order", "place order", "buy", "purchase", "want to order"}, []string{"draft_order", "create_order"}},
	{[]string{"order status", "track", "where is my", "order #", "order number"}, []string{"order_status"}},
	{[]string{"return", "refund", "send back", "defective"}, []string{"order_status", "initiate_return"}},
	{[]string{"browse", "show me", "looking for", "available", "products", "catalog"}, []string{"product_catalog"}},
	{[]string{"shipping", "delivery", "ship to", "how much to ship"}, []string{"estimate_shipping"}},
}

// DetectLikelyTools guesses which tools a user message will lead to, in rule
// order with duplicates removed.
func DetectLikelyTools(userMessage string) []string {
	lower := strings.ToLower(userMessage)

	var tools []string
	seen := map[string]bool{}
	for _, rule := range sopKeywordRules {
		matched := false
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, tool := range rule.tools {
			if !seen[tool] {
				seen[tool] = true
				tools = append(tools, tool)
			}
		}
	}
	return tools
}

// SOPInjector looks up agent-facing standard operating procedures for the
// tools a message is likely to trigger, so the model sees the procedure
// before it decides to call anything.
//
// Lookups are cached per tool, including misses, so each tool costs at most
// one vector query for the injector's lifetime.
type SOPInjector struct {
	store KnowledgeSearcher
	log   *slog.Logger

	mu    sync.Mutex
	cache map[string]string // tool name -> formatted SOP, "" for a cached miss
}

func NewSOPInjector(store KnowledgeSearcher, log *slog.Logger) *SOPInjector {
	return &SOPInjector{
		store: store,
		log:   log,
		cache: make(map[string]string),
	}
}

// RelevantProcedures returns the formatted SOP block for the user message, or
// an empty string when no procedures apply.
func (inj *SOPInjector) RelevantProcedures(ctx context.Context, userMessage string) string {
	if inj.store == nil {
		return ""
	}

	var sops []string
	for _, tool := range DetectLikelyTools(userMessage) {
		sop := inj.lookup(ctx, tool)
		if sop != "" {
			sops = append(sops, sop)
		}
	}
	if len(sops) == 0 {
		return ""
	}
	return "RELEVANT PROCEDURES:\n\n" + strings.Join(sops, "\n\n")
}

func (inj *SOPInjector) lookup(ctx context.Context, tool string) string {
	inj.mu.Lock()
	sop, cached := inj.cache[tool]
	inj.mu.Unlock()
	if cached {
		return sop
	}

	// SOP documents are indexed under agent-sop-<tool> with hyphens.
	query := "agent-sop-" + strings.ReplaceAll(tool, "_", "-")
	results, err := inj.store.SearchByText(ctx, query, kb.SearchOptions{
		Limit: 1,
		Filter: map[string]string{
			"audience": "agent",
			"doc_type": "sop",
		},
	})
	if err != nil {
		// Not cached: a transient retrieval failure should not poison the tool.
		inj.log.Warn("sop lookup failed", "tool", tool, "error", err)
		return ""
	}

	sop = ""
	if len(results) > 0 {
		title := results[0].Title
		if title == "" {
			title = tool + " SOP"
		}
		sop = "=== " + title + " ===\n" + results[0].Content
		inj.log.Info("sop retrieved", "tool", tool, "title", title)
	}

	inj.mu.Lock()
	inj.cache[tool] = sop
	inj.mu.Unlock()
	return sop
}
