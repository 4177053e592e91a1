// Package session holds the authenticated session: the token pair and the user snapshot.
//
// Memory is the source of truth for reads. Every mutation is written through to a
// keyring so the session survives restarts; when the keyring is unavailable or fails,
// the store keeps working from memory and logs the failure.
package session

import (
	"encoding/json"
	"sync"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"

	"github.com/eshaffer321/dishdash-go/internal/types"
)

// Snapshot is a point-in-time copy of the session
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	User         *types.User
}

// Authenticated reports whether the snapshot holds an access token
func (s Snapshot) Authenticated() bool {
	return s.AccessToken != ""
}

// Store owns the current session
type Store struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *types.User

	// persistMu orders keyring writes. mu is never held across keyring I/O.
	persistMu sync.Mutex
	ring      keyring.Keyring
	logger    types.Logger

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// NewStore creates a store backed by ring and hydrates it from the persisted session.
// A nil ring keeps the session in memory only.
func NewStore(ring keyring.Keyring, logger types.Logger) *Store {
	s := &Store{
		ring:        ring,
		logger:      types.LoggerOrNop(logger),
		subscribers: make(map[int]func(Snapshot)),
	}
	s.hydrate()
	return s
}

// AccessToken returns the current access token, or "" when signed out
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, or ""
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns a copy of the current user, or nil
func (s *Store) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// IsAuthenticated reports whether an access token is held
func (s *Store) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// Role returns the current user's role and whether a user is present
func (s *Store) Role() (types.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return "", false
	}
	return s.user.Role, true
}

// Snapshot returns a copy of the whole session
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// SetSession replaces the token pair and user in one step
func (s *Store) SetSession(accessToken, refreshToken string, user *types.User) {
	s.mu.Lock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.user = user.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.flush()
	s.notify(snap)
}

// UpdateTokens swaps in a new access token. An empty refreshToken keeps the current one.
func (s *Store) UpdateTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	s.accessToken = accessToken
	if refreshToken != "" {
		s.refreshToken = refreshToken
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.flush()
	s.notify(snap)
}

// SetUser replaces the user snapshot, keeping the tokens
func (s *Store) SetUser(user *types.User) {
	s.mu.Lock()
	s.user = user.Clone()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.flush()
	s.notify(snap)
}

// Clear removes the session. Clearing an empty store is a no-op apart from notifying.
func (s *Store) Clear() {
	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.mu.Unlock()

	s.flush()
	s.notify(Snapshot{})
}

// flush writes the current in-memory session to the keyring. The state is read
// after persistMu is taken, so the last flush to run always writes the newest session.
func (s *Store) flush() {
	if s.ring == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	snap := s.Snapshot()
	s.persist(KeyAccess, snap.AccessToken)
	s.persist(KeyRefresh, snap.RefreshToken)
	s.persistUser(snap.User)
}

// Subscribe registers fn to be called after every mutation.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		User:         s.user.Clone(),
	}
}

// Keyring keys
const (
	KeyAccess   = types.KeyAccessToken
	KeyRefresh  = types.KeyRefreshToken
	KeyUserData = types.KeyUser
)

func (s *Store) persist(key, value string) {
	if s.ring == nil {
		return
	}
	if value == "" {
		s.remove(key)
		return
	}
	if err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		s.logger.Warn("Failed to persist session value", "key", key, "error", err)
	}
}

func (s *Store) persistUser(user *types.User) {
	if s.ring == nil {
		return
	}
	if user == nil {
		s.remove(KeyUserData)
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn("Failed to marshal session user", "error", err)
		return
	}
	if err := s.ring.Set(keyring.Item{Key: KeyUserData, Data: data}); err != nil {
		s.logger.Warn("Failed to persist session value", "key", KeyUserData, "error", err)
	}
}

func (s *Store) remove(key string) {
	if s.ring == nil {
		return
	}
	if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		s.logger.Warn("Failed to remove session value", "key", key, "error", err)
	}
}

func (s *Store) hydrate() {
	if s.ring == nil {
		return
	}

	s.accessToken = s.load(KeyAccess)
	s.refreshToken = s.load(KeyRefresh)

	if raw := s.load(KeyUserData); raw != "" {
		var user types.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.Warn("Discarding corrupt persisted user", "error", err)
		} else {
			s.user = &user
		}
	}

	if s.accessToken != "" && s.user != nil {
		s.logger.Debug("Session restored", "email", s.user.Email)
	}
}

func (s *Store) load(key string) string {
	item, err := s.ring.Get(key)
	if err != nil {
		if !errors.Is(err, keyring.ErrKeyNotFound) {
			s.logger.Warn("Failed to load session value", "key", key, "error", err)
		}
		return ""
	}
	return string(item.Data)
}
