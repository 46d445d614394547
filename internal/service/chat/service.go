package chat

import (
	"context"
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/model/chat"
)

// DefaultMaxSessions bounds the session index when no capacity is configured.
const DefaultMaxSessions = 10000

var ErrSessionIDRequired = errors.New("session id is required")

// Config controls the session index.
type Config struct {
	MaxSessions int
	Logger      *zap.Logger
}

// conversation is the per-session record. gate serializes whole exchanges,
// mu guards the data itself. refs counts exchanges holding or waiting on the
// gate and is guarded by Service.mu.
type conversation struct {
	gate  chan struct{}
	refs  int
	mu    sync.RWMutex
	turns []chat.Turn
	facts map[string]string
}

func newConversation() *conversation {
	return &conversation{
		gate:  make(chan struct{}, 1),
		turns: make([]chat.Turn, 0, 16),
	}
}

func (c *conversation) append(turn chat.Turn) {
	c.mu.Lock()
	c.turns = append(c.turns, turn)
	c.mu.Unlock()
}

func (c *conversation) snapshot(id string) chat.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	turns := make([]chat.Turn, len(c.turns))
	copy(turns, c.turns)

	var facts map[string]string
	if len(c.facts) > 0 {
		facts = make(map[string]string, len(c.facts))
		for k, v := range c.facts {
			facts[k] = v
		}
	}
	return chat.Session{ID: id, Turns: turns, Facts: facts}
}

func (c *conversation) remember(facts map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.facts == nil {
		c.facts = make(map[string]string, len(facts))
	}
	for k, v := range facts {
		c.facts[k] = v
	}
}

// Service keeps conversation history in a bounded, least-recently-used index.
// Sessions are created lazily on first reference and live until evicted. A
// session evicted during an exchange stays reachable through active and is
// indexed again when the exchange ends.
type Service struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *conversation]
	active   map[string]*conversation
	logger   *zap.Logger
}

// NewService builds the in-memory session store.
func NewService(cfg Config) *Service {
	size := cfg.MaxSessions
	if size <= 0 {
		size = DefaultMaxSessions
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{logger: logger, active: make(map[string]*conversation)}
	cache, err := lru.NewWithEvict[string, *conversation](size, func(id string, _ *conversation) {
		s.logger.Info("session evicted", zap.String("session_id", id))
	})
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	s.sessions = cache
	return s
}

func (s *Service) lookup(sessionID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(sessionID)
}

func (s *Service) lookupLocked(sessionID string) *conversation {
	if c, ok := s.sessions.Get(sessionID); ok {
		return c
	}
	if c, ok := s.active[sessionID]; ok {
		s.sessions.Add(sessionID, c)
		return c
	}
	c := newConversation()
	s.sessions.Add(sessionID, c)
	return c
}

// hold pins the conversation for an exchange that is about to wait on its gate.
func (s *Service) hold(sessionID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookupLocked(sessionID)
	c.refs++
	s.active[sessionID] = c
	return c
}

// unhold drops a pin. reindex puts the conversation back into the index if it
// was evicted while pinned.
func (s *Service) unhold(sessionID string, c *conversation, reindex bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.refs--
	if reindex {
		if _, ok := s.sessions.Peek(sessionID); !ok {
			s.sessions.Add(sessionID, c)
		}
	}
	if c.refs == 0 && s.active[sessionID] == c {
		delete(s.active, sessionID)
	}
}

// GetOrCreate returns the ordered turns of a session, creating an empty session if absent.
func (s *Service) GetOrCreate(sessionID string) []chat.Turn {
	return s.lookup(sessionID).snapshot(sessionID).Turns
}

// Append adds a turn to the session history.
func (s *Service) Append(sessionID string, turn chat.Turn) {
	s.lookup(sessionID).append(turn)
}

// History is a pure read: it neither creates the session nor refreshes its recency.
func (s *Service) History(sessionID string) ([]chat.Turn, bool) {
	s.mu.Lock()
	c, ok := s.sessions.Peek(sessionID)
	s.mu.Unlock()
	if !ok {
		return []chat.Turn{}, false
	}
	return c.snapshot(sessionID).Turns, true
}

// Len reports how many sessions are currently indexed.
func (s *Service) Len() int {
	return s.sessions.Len()
}

// Exchange is exclusive access to one session for a full user→agent exchange.
type Exchange struct {
	id    string
	conv  *conversation
	store *Service
	once  sync.Once
}

// Acquire waits for exclusive access to the session, creating it if needed.
// Exchanges on different sessions never block each other.
func (s *Service) Acquire(ctx context.Context, sessionID string) (*Exchange, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	c := s.hold(sessionID)
	select {
	case c.gate <- struct{}{}:
	case <-ctx.Done():
		s.unhold(sessionID, c, false)
		return nil, ctx.Err()
	}
	return &Exchange{id: sessionID, conv: c, store: s}, nil
}

// ID returns the session identifier.
func (e *Exchange) ID() string {
	return e.id
}

// Append adds a turn while holding the exchange.
func (e *Exchange) Append(turn chat.Turn) {
	e.conv.append(turn)
}

// Remember merges facts into the session.
func (e *Exchange) Remember(facts map[string]string) {
	if len(facts) == 0 {
		return
	}
	e.conv.remember(facts)
}

// Snapshot copies the session state.
func (e *Exchange) Snapshot() chat.Session {
	return e.conv.snapshot(e.id)
}

// Release ends the exchange. Calling it more than once is a no-op.
func (e *Exchange) Release() {
	e.once.Do(func() {
		<-e.conv.gate
		e.store.unhold(e.id, e.conv, true)
	})
}
