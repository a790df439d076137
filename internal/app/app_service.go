package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"support-agent/internal/ai"
	"support-agent/internal/kb"
)

// sessionTTL is how long an idle conversation survives before eviction.
const sessionTTL = 30 * time.Minute

type session struct {
	agent    *ai.Agent
	lastSeen time.Time
}

// sessionStore is a thread-safe in-memory session map with TTL expiry.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

func (s *sessionStore) put(id string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

// get returns the session and refreshes its idle timer.
func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Since(sess.lastSeen) > sessionTTL {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = time.Now()
	return sess, true
}

func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

func (s *sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// startPurge starts a background goroutine that evicts expired sessions every
// 5 minutes.
func (s *sessionStore) startPurge(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				for id, sess := range s.sessions {
					if time.Since(sess.lastSeen) > sessionTTL {
						delete(s.sessions, id)
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}

type appService struct {
	pool     *pgxpool.Pool
	kbStore  *kb.Store
	newAgent func() *ai.Agent
	sessions *sessionStore
	log      *slog.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
// newAgent builds a fresh agent per session; each session carries its own
// transcript and SOP cache.
func NewAppService(ctx context.Context, pool *pgxpool.Pool, kbStore *kb.Store, newAgent func() *ai.Agent, log *slog.Logger) ApplicationService {
	sessions := newSessionStore()
	sessions.startPurge(ctx)
	return &appService{
		pool:     pool,
		kbStore:  kbStore,
		newAgent: newAgent,
		sessions: sessions,
		log:      log,
	}
}

func (s *appService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	sessionID := req.SessionID
	var sess *session
	if sessionID != "" {
		sess, _ = s.sessions.get(sessionID)
	}
	if sess == nil {
		sessionID = uuid.NewString()
		sess = &session{agent: s.newAgent(), lastSeen: time.Now()}
		s.sessions.put(sessionID, sess)
		s.log.Info("session started", "session_id", sessionID)
	}

	reply, toolCalls, err := sess.agent.Chat(ctx, req.Message)
	if err != nil {
		return nil, err
	}
	if toolCalls == nil {
		toolCalls = []ai.ToolCall{}
	}

	return &ChatResult{
		SessionID: sessionID,
		Reply:     reply,
		ToolCalls: toolCalls,
	}, nil
}

func (s *appService) ClearSession(ctx context.Context, sessionID string) bool {
	ok := s.sessions.delete(sessionID)
	if ok {
		s.log.Info("session cleared", "session_id", sessionID)
	}
	return ok
}

func (s *appService) Health(ctx context.Context) *HealthResult {
	res := &HealthResult{
		Database: "connected",
		Sessions: s.sessions.count(),
	}
	if err := s.pool.Ping(ctx); err != nil {
		res.Database = "error: " + err.Error()
	}
	if s.kbStore == nil {
		res.KnowledgeBase = kb.CollectionStatus{
			Status:  "disconnected",
			Message: "qdrant is not configured",
		}
	} else {
		res.KnowledgeBase = s.kbStore.Info(ctx)
	}
	return res
}

func (s *appService) Welcome() string {
	return ai.WelcomeMessage
}
