// Package services holds the session-scoped service layer between the HTTP
// transport and the preprocessing pipeline. Each session owns exactly one
// Preprocessor and therefore one working table; sessions are never shared,
// which is what lets the pipeline itself stay lock-free.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gidavehub/mlstudio-sub000/internal/config"
	"github.com/gidavehub/mlstudio-sub000/internal/infrastructure"
	"github.com/gidavehub/mlstudio-sub000/internal/pipeline"
)

// Session binds one Preprocessor to an ID and serializes access to it. The
// mutex makes concurrent HTTP requests against the same session safe by
// running its operations one at a time; different sessions proceed in
// parallel.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
	pre      *pipeline.Preprocessor
}

// SessionInfo is the read-only view of a session returned by List and Get.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
	Steps     int       `json:"steps"`
}

// SessionService owns the registry of live sessions and enforces the
// session limit and idle expiry.
type SessionService struct {
	logger  *slog.Logger
	cfg     config.SessionConfig
	metrics *infrastructure.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates the registry. Call Janitor to start idle-sweep
// in the background.
func NewSessionService(logger *slog.Logger, cfg config.SessionConfig, metrics *infrastructure.Metrics) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		logger:   logger.With(slog.String("component", "session_service")),
		cfg:      cfg,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new empty session.
func (s *SessionService) Create(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.cfg.MaxSessions {
		return nil, fmt.Errorf("%w: %d active", ErrTooManySessions, len(s.sessions))
	}

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		lastUsed:  now,
		pre:       pipeline.New(s.logger),
	}
	s.sessions[session.ID] = session
	s.metrics.ActiveSessions.Set(float64(len(s.sessions)))

	s.logger.InfoContext(ctx, "session created", slog.String("session_id", session.ID))
	return session, nil
}

// Get returns the session with the given ID.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// Delete removes a session from the registry.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.logger.InfoContext(ctx, "session deleted", slog.String("session_id", id))
	return nil
}

// List returns a snapshot of every live session.
func (s *SessionService) List() []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, session := range s.sessions {
		infos = append(infos, session.Info())
	}
	return infos
}

// Janitor periodically removes sessions idle longer than the configured
// TTL. It runs until the context ends.
func (s *SessionService) Janitor(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *SessionService) sweep() {
	cutoff := time.Now().UTC().Add(-s.cfg.IdleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		session.mu.Lock()
		idle := session.lastUsed.Before(cutoff)
		session.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			s.logger.Info("idle session expired", slog.String("session_id", id))
		}
	}
	s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

// Info returns the session's read-only view.
func (sn *Session) Info() SessionInfo {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	info := SessionInfo{
		ID:        sn.ID,
		CreatedAt: sn.CreatedAt,
		LastUsed:  sn.lastUsed,
		Steps:     len(sn.pre.Steps()),
	}
	if t := sn.pre.Table(); t != nil {
		info.Rows = t.NumRows()
		info.Columns = t.NumColumns()
	}
	return info
}

// with runs fn while holding the session's lock and refreshes the idle
// timestamp. Every pipeline operation goes through here.
func (sn *Session) with(fn func(*pipeline.Preprocessor) error) error {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	sn.lastUsed = time.Now().UTC()
	return fn(sn.pre)
}
