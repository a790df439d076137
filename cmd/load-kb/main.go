// load-kb is a one-shot tool to load knowledge-base articles into Qdrant.
// It reads a JSON array of documents, embeds them, and upserts in batches.
// Point IDs derive from document IDs, so re-running overwrites in place.
//
// Usage: go run ./cmd/load-kb [file.json]   (default: kb/documents.json)
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/joho/godotenv"

	"support-agent/internal/ai"
	"support-agent/internal/kb"
	"support-agent/internal/logging"
)

const batchSize = 32

func main() {
	_ = godotenv.Load()
	logger := logging.New()

	path := "kb/documents.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	docs := readDocuments(path)
	if len(docs) == 0 {
		log.Fatalf("No documents found in %s", path)
	}

	client, configured := ai.NewClient(os.Getenv("OPENAI_API_KEY"))
	if !configured {
		log.Fatal("OPENAI_API_KEY must be set to embed documents")
	}

	store, err := kb.NewStoreFromEnv(kb.NewOpenAIEmbedder(client), logger)
	if err != nil {
		log.Fatalf("Failed to connect to qdrant: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure collection: %v", err)
	}

	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		if err := store.Upsert(ctx, docs[start:end]); err != nil {
			log.Fatalf("Failed to upsert documents %d-%d: %v", start, end-1, err)
		}
		log.Printf("Upserted %d/%d documents", end, len(docs))
	}

	status := store.Info(ctx)
	log.Printf("Done. Collection %s now holds %d points.", status.Collection, status.PointsCount)
}

func readDocuments(path string) []kb.Document {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	var docs []kb.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		log.Fatalf("Failed to parse %s: %v", path, err)
	}

	seen := make(map[string]bool, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			log.Fatalf("Document %d in %s has no id", i, path)
		}
		if seen[d.ID] {
			log.Fatalf("Duplicate document id %s in %s", d.ID, path)
		}
		seen[d.ID] = true
	}
	return docs
}
