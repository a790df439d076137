package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"support-agent/internal/ai"
	"support-agent/internal/kb"
)

func TestDetectLikelyTools(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{
			name:    "purchase intent",
			message: "I want to buy a keyboard",
			want:    []string{"draft_order", "create_order"},
		},
		{
			name:    "order tracking",
			message: "track my package please",
			want:    []string{"order_status"},
		},
		{
			name:    "order word also triggers ordering tools",
			message: "where is my order #12?",
			want:    []string{"draft_order", "create_order", "order_status"},
		},
		{
			name:    "return intent",
			message: "this item is DEFECTIVE",
			want:    []string{"order_status", "initiate_return"},
		},
		{
			name:    "browsing",
			message: "show me what you have",
			want:    []string{"product_catalog"},
		},
		{
			name:    "shipping question",
			message: "how much is shipping to 94107?",
			want:    []string{"estimate_shipping"},
		},
		{
			name:    "no match",
			message: "hello there",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ai.DetectLikelyTools(tt.message)
			if len(got) != len(tt.want) {
				t.Fatalf("DetectLikelyTools(%q) = %v, want %v", tt.message, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// fakeSearcher records queries and serves canned documents keyed by query.
type fakeSearcher struct {
	docs    map[string][]kb.Document
	queries []string
	filters []map[string]string
	err     error
}

func (f *fakeSearcher) SearchByText(ctx context.Context, query string, opts kb.SearchOptions) ([]kb.Document, error) {
	f.queries = append(f.queries, query)
	f.filters = append(f.filters, opts.Filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[query], nil
}

func TestSOPInjector_RelevantProcedures(t *testing.T) {
	searcher := &fakeSearcher{
		docs: map[string][]kb.Document{
			"agent-sop-initiate-return": {{
				Title:   "SOP: Initiating a Return",
				Content: "Look up the order first.",
			}},
		},
	}
	inj := ai.NewSOPInjector(searcher, testLogger())

	got := inj.RelevantProcedures(context.Background(), "I want to return this, it is defective")

	if !strings.HasPrefix(got, "RELEVANT PROCEDURES:\n\n") {
		t.Errorf("Missing header: %q", got)
	}
	if !strings.Contains(got, "=== SOP: Initiating a Return ===\nLook up the order first.") {
		t.Errorf("SOP body not formatted as expected: %q", got)
	}

	// The message maps to order_status and initiate_return; both get exactly
	// one lookup, with the agent/sop payload filter.
	if len(searcher.queries) != 2 {
		t.Fatalf("Expected 2 lookups, got %v", searcher.queries)
	}
	if searcher.queries[0] != "agent-sop-order-status" || searcher.queries[1] != "agent-sop-initiate-return" {
		t.Errorf("Unexpected queries: %v", searcher.queries)
	}
	for _, filter := range searcher.filters {
		if filter["audience"] != "agent" || filter["doc_type"] != "sop" {
			t.Errorf("Unexpected filter: %v", filter)
		}
	}
}

func TestSOPInjector_CachesHitsAndMisses(t *testing.T) {
	searcher := &fakeSearcher{
		docs: map[string][]kb.Document{
			"agent-sop-initiate-return": {{Title: "Returns", Content: "body"}},
		},
	}
	inj := ai.NewSOPInjector(searcher, testLogger())

	first := inj.RelevantProcedures(context.Background(), "return this defective thing")
	second := inj.RelevantProcedures(context.Background(), "return this defective thing")

	if first != second {
		t.Errorf("Cached result differs: %q vs %q", first, second)
	}
	// Two tools, two queries, no repeats on the second call even though
	// order_status was a miss.
	if len(searcher.queries) != 2 {
		t.Errorf("Expected 2 total lookups across both calls, got %v", searcher.queries)
	}
}

func TestSOPInjector_ErrorsAreNotCached(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("qdrant down")}
	inj := ai.NewSOPInjector(searcher, testLogger())

	if got := inj.RelevantProcedures(context.Background(), "track my package"); got != "" {
		t.Errorf("Expected empty result on lookup failure, got %q", got)
	}

	// The failure must not be cached: the store may recover.
	searcher.err = nil
	searcher.docs = map[string][]kb.Document{
		"agent-sop-order-status": {{Title: "Status", Content: "body"}},
	}
	if got := inj.RelevantProcedures(context.Background(), "track my package"); got == "" {
		t.Error("Expected a result after the store recovered")
	}
	if len(searcher.queries) != 2 {
		t.Errorf("Expected a retry after failure, got queries %v", searcher.queries)
	}
}

func TestSOPInjector_NoMatchingTools(t *testing.T) {
	searcher := &fakeSearcher{}
	inj := ai.NewSOPInjector(searcher, testLogger())

	if got := inj.RelevantProcedures(context.Background(), "hello"); got != "" {
		t.Errorf("Expected empty result for small talk, got %q", got)
	}
	if len(searcher.queries) != 0 {
		t.Errorf("Expected no lookups, got %v", searcher.queries)
	}
}
