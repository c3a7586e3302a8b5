package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	pkgerrors "github.com/tabletalk/tabletalk/pkg/errors"
	"github.com/tabletalk/tabletalk/pkg/models"
)

// Session retains the pipeline history of one conversation. States are
// appended per request; the store garbage-collects idle sessions.
type Session struct {
	ID             string                  `json:"id"`
	CreatedAt      time.Time               `json:"created_at"`
	LastActivityAt time.Time               `json:"last_activity_at"`
	History        []*models.PipelineState `json:"history"`
}

// SessionStore is an in-memory, uuid-keyed session registry.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	logger      zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionStore creates a session store. With a positive idle timeout
// a background routine reaps idle sessions every timeout interval until
// Stop is called.
func NewSessionStore(idleTimeout time.Duration, logger zerolog.Logger) *SessionStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SessionStore{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		logger:      logger,
		cancel:      cancel,
	}
	if idleTimeout > 0 {
		s.wg.Add(1)
		go s.cleanupRoutine(ctx)
	}
	return s
}

// Create registers a new session and returns its id.
func (s *SessionStore) Create() string {
	id := uuid.New().String()
	now := time.Now()

	s.mu.Lock()
	s.sessions[id] = &Session{
		ID:             id,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	s.mu.Unlock()

	s.logger.Debug().Str("session_id", id).Msg("Session created")
	return id
}

// Get returns a session by id.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found").WithDetail("session_id", id)
	}
	return session, nil
}

// Append records a finished pipeline state in the session history,
// creating the session if the id is unknown.
func (s *SessionStore) Append(id string, state *models.PipelineState) {
	now := time.Now()

	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok {
		session = &Session{ID: id, CreatedAt: now}
		s.sessions[id] = session
	}
	session.History = append(session.History, state)
	session.LastActivityAt = now
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CleanupIdle removes sessions idle for longer than the given duration
// and returns how many were removed.
func (s *SessionStore) CleanupIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.LastActivityAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("Cleaned up idle sessions")
	}
	return removed
}

// Stop terminates the cleanup routine.
func (s *SessionStore) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *SessionStore) cleanupRoutine(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.idleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupIdle(s.idleTimeout)
		}
	}
}
