package session

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_shopbot/internal/domain"
)

const (
	// DefaultTTL is how long an untouched session is kept
	DefaultTTL = 24 * time.Hour

	// CleanupInterval is how often the background sweep runs
	CleanupInterval = time.Minute
)

// MemoryStore implements Store with in-memory storage
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*domain.Session
	ttl      time.Duration

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

// NewMemoryStore creates a store that forgets sessions idle for longer than ttl
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = CleanupInterval
	}

	s := &MemoryStore{
		sessions:    make(map[int64]*domain.Session),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop(cleanupInterval)

	return s
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expireSessions(time.Now())
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) expireSessions(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uid, sess := range s.sessions {
		if now.Sub(sess.UpdatedAt) > s.ttl {
			delete(s.sessions, uid)
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return clone(sess), nil
}

func (s *MemoryStore) Save(_ context.Context, sess *domain.Session) error {
	sess.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = clone(sess)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}
