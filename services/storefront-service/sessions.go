package main

import (
	"context"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/metrics"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/store"
)

const maxNotices = 10

// noticeView is the JSON form of a store notice.
type noticeView struct {
	Operation string `json:"operation"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// session is one signed-in user's cart store plus the notices it has raised
// since the last response. ready is closed once the first cart load finished.
type session struct {
	store *store.Store
	ready chan struct{}

	mu      sync.Mutex
	notices []noticeView
}

func (s *session) push(n store.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, noticeView{Operation: n.Operation, Kind: n.Kind.String(), Message: n.Message})
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// drain returns and forgets the pending notices.
func (s *session) drain() []noticeView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

// StoreFactory builds a store that reports to notify.
type StoreFactory func(notify store.Notifier) *store.Store

// Sessions maps bearer tokens to live sessions. The least recently used
// session is logged out when the cache is full.
type Sessions struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, *session]
	newStore StoreFactory
}

func NewSessions(size int, newStore StoreFactory) (*Sessions, error) {
	cache, err := lru.NewWithEvict[string, *session](size, func(token string, s *session) {
		s.store.Logout()
		metrics.SessionsActive.Dec()
		log.WithField("session", fingerprint(token)).Info("Session ended")
	})
	if err != nil {
		return nil, err
	}
	return &Sessions{cache: cache, newStore: newStore}, nil
}

// Get returns the session for token, creating it and loading the cart on
// first use. Concurrent callers for a new session wait for that first load.
func (m *Sessions) Get(ctx context.Context, token string) (*session, error) {
	m.mu.Lock()
	if s, ok := m.cache.Get(token); ok {
		m.mu.Unlock()
		select {
		case <-s.ready:
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s := &session{ready: make(chan struct{})}
	s.store = m.newStore(s.push)
	m.cache.Add(token, s)
	metrics.SessionsActive.Inc()
	m.mu.Unlock()

	log.WithField("session", fingerprint(token)).Info("Session started")
	err := s.store.Login(ctx)
	close(s.ready)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// End logs the session out and forgets it.
func (m *Sessions) End(token string) bool {
	return m.cache.Remove(token)
}

func (m *Sessions) Len() int {
	return m.cache.Len()
}

// Purge ends every session.
func (m *Sessions) Purge() {
	m.cache.Purge()
}

// fingerprint identifies a token in logs without exposing it.
func fingerprint(token string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(token)).String()[:8]
}
