// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session keeps one workflow controller per browser session.
//
// Sessions are identified by random UUIDs, held in memory and swept once they
// have been idle for longer than the configured TTL.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/cpeof/pkg/observability"
	"github.com/kadirpekel/cpeof/pkg/workflow"
)

// DefaultTTL is how long an untouched session is kept.
const DefaultTTL = 30 * time.Minute

// ControllerFactory builds the controller for a new session.
type ControllerFactory func(id string) *workflow.Controller

// Session is one browser session.
type Session struct {
	id         string
	controller *workflow.Controller
	created    time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Controller returns the session's workflow controller.
func (s *Session) Controller() *workflow.Controller { return s.controller }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.created }

// LastSeen returns the last time the session was looked up.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Store is an in-memory session registry. It is safe for concurrent use.
type Store struct {
	factory ControllerFactory
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the idle timeout. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMetrics tracks the number of live sessions.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates an empty store.
func NewStore(factory ControllerFactory, opts ...Option) *Store {
	s := &Store{
		factory:  factory,
		ttl:      DefaultTTL,
		logger:   slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the idle timeout.
func (s *Store) TTL() time.Duration { return s.ttl }

// Get returns a live session and refreshes its idle timer.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.touch(s.now())
	return sess, true
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// unknown or not a valid session identifier. created reports whether a new
// session was made.
func (s *Store) GetOrCreate(ctx context.Context, id string) (sess *Session, created bool) {
	if _, err := uuid.Parse(id); err == nil {
		if sess, ok := s.Get(id); ok {
			return sess, false
		}
	}

	now := s.now()
	sess = &Session{
		id:       uuid.NewString(),
		created:  now,
		lastSeen: now,
	}
	sess.controller = s.factory(sess.id)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.metrics.AddSessions(ctx, 1)
	s.logger.Debug("Session created", "session_id", sess.id)
	return sess, true
}

// Delete removes a session and cancels its in-flight analysis.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	sess.controller.Close()
	s.metrics.AddSessions(ctx, -1)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.controller.Close()
	}
	if n := len(expired); n > 0 {
		s.metrics.AddSessions(ctx, -int64(n))
		s.logger.Debug("Expired sessions swept", "count", n, "remaining", s.Len())
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Close cancels every in-flight analysis and empties the store.
func (s *Store) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.controller.Close()
	}
	if n := len(sessions); n > 0 {
		s.metrics.AddSessions(context.Background(), -int64(n))
	}
}
