// Package kb provides semantic search over the Qdrant knowledge base used to
// ground agent answers in store policies and procedures.
package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// DefaultCollection is the knowledge-base collection name.
const DefaultCollection = "knowledge_base"

// Search defaults. Results scoring below the threshold are dropped by Qdrant.
const (
	DefaultSearchLimit    = 5
	DefaultScoreThreshold = 0.7
)

// ErrNotConnected is returned when the store was built without Qdrant
// configuration. Callers treat retrieval as unavailable rather than fatal.
var ErrNotConnected = errors.New("qdrant is not configured")

// Document is a knowledge-base entry. On search results Score carries the
// cosine similarity and Payload the stored metadata.
type Document struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Payload map[string]any `json:"payload,omitempty"`
	Score   float32        `json:"score,omitempty"`
}

// SearchOptions narrows a text search. Zero values fall back to the package
// defaults; Filter entries become exact-match payload conditions.
type SearchOptions struct {
	Limit          int
	ScoreThreshold float32
	Filter         map[string]string
}

// CollectionStatus reports connectivity and size of the collection.
type CollectionStatus struct {
	Status      string `json:"status"`
	Collection  string `json:"collection,omitempty"`
	PointsCount uint64 `json:"points_count,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Store wraps a Qdrant collection plus the embedder that feeds it.
type Store struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
	log        *slog.Logger
}

// NewStore connects to Qdrant at rawURL (scheme selects TLS, port defaults to
// 6334) and returns a store over the named collection. An empty rawURL yields
// ErrNotConnected.
func NewStore(rawURL, apiKey, collection string, embedder Embedder, log *slog.Logger) (*Store, error) {
	if rawURL == "" {
		return nil, ErrNotConnected
	}
	if collection == "" {
		collection = DefaultCollection
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant URL %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		// Bare host[:port] without a scheme.
		host = rawURL
		if h, _, ok := strings.Cut(rawURL, ":"); ok {
			host = h
		}
	}
	port := 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port %q: %w", p, err)
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Store{
		client:     client,
		embedder:   embedder,
		collection: collection,
		log:        log,
	}, nil
}

// NewStoreFromEnv reads QDRANT_URL, QDRANT_API_KEY, and KB_COLLECTION.
func NewStoreFromEnv(embedder Embedder, log *slog.Logger) (*Store, error) {
	return NewStore(os.Getenv("QDRANT_URL"), os.Getenv("QDRANT_API_KEY"),
		os.Getenv("KB_COLLECTION"), embedder, log)
}

// EnsureCollection creates the collection if it does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     EmbeddingDimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	s.log.Info("created qdrant collection", "collection", s.collection)
	return nil
}

// SearchByText embeds the query and returns the closest documents.
func (s *Store) SearchByText(ctx context.Context, query string, opts SearchOptions) ([]Document, error) {
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.Search(ctx, vector, opts)
}

// Search runs a similarity search with an already-computed query vector.
func (s *Store) Search(ctx context.Context, vector []float32, opts SearchOptions) ([]Document, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	threshold := opts.ScoreThreshold
	if threshold == 0 {
		threshold = DefaultScoreThreshold
	}

	req := &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(opts.Filter) > 0 {
		var conditions []*qdrant.Condition
		for field, value := range opts.Filter {
			conditions = append(conditions, qdrant.NewMatch(field, value))
		}
		req.Filter = &qdrant.Filter{Must: conditions}
	}

	resp, err := s.client.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	var docs []Document
	for _, point := range resp.Result {
		doc := Document{Score: point.Score}
		if point.Id != nil {
			switch id := point.Id.PointIdOptions.(type) {
			case *qdrant.PointId_Uuid:
				doc.ID = id.Uuid
			case *qdrant.PointId_Num:
				doc.ID = strconv.FormatUint(id.Num, 10)
			}
		}
		doc.Payload = payloadToMap(point.Payload)
		if title, ok := doc.Payload["title"].(string); ok {
			doc.Title = title
		}
		if content, ok := doc.Payload["content"].(string); ok {
			doc.Content = content
		}
		docs = append(docs, doc)
	}

	s.log.Debug("knowledge base searched", "collection", s.collection,
		"limit", limit, "results", len(docs))
	return docs, nil
}

// Upsert writes documents into the collection. Each document gets a stable
// UUID derived from its ID, so reloading the same corpus overwrites in place
// instead of duplicating points.
func (s *Store) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = strings.TrimSpace(d.Title + " " + d.Content)
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		payload := make(map[string]*qdrant.Value, len(d.Payload)+2)
		for key, value := range d.Payload {
			val, err := qdrant.NewValue(value)
			if err != nil {
				return fmt.Errorf("failed to convert payload value %s for document %s: %w", key, d.ID, err)
			}
			payload[key] = val
		}
		payload["title"], _ = qdrant.NewValue(d.Title)
		payload["content"], _ = qdrant.NewValue(d.Content)

		pointID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(d.ID)).String()
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}

	s.log.Info("documents upserted", "collection", s.collection, "count", len(points))
	return nil
}

// Info reports the collection status for health checks and diagnostics.
func (s *Store) Info(ctx context.Context) CollectionStatus {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return CollectionStatus{Status: "error", Message: err.Error()}
	}
	status := CollectionStatus{
		Status:     "connected",
		Collection: s.collection,
	}
	if info.PointsCount != nil {
		status.PointsCount = *info.PointsCount
	}
	return status
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = valueToAny(value)
	}
	return out
}

func valueToAny(value *qdrant.Value) any {
	switch v := value.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	case *qdrant.Value_ListValue:
		if v.ListValue == nil {
			return nil
		}
		list := make([]any, len(v.ListValue.Values))
		for i, item := range v.ListValue.Values {
			list[i] = valueToAny(item)
		}
		return list
	case *qdrant.Value_StructValue:
		if v.StructValue == nil {
			return nil
		}
		return payloadToMap(v.StructValue.Fields)
	default:
		return nil
	}
}
