package cache

import (
	"strconv"
	"time"

	"finarth/internal/core"
)

// SessionCache keeps recently seen user profiles in memory, keyed by user id.
// It is process-local; each API instance has its own.
type SessionCache struct {
	users *LRUCache[core.User]
}

func NewSessionCache(maxSize int, ttl time.Duration) *SessionCache {
	return &SessionCache{users: NewLRUCache[core.User](maxSize, ttl)}
}

func (s *SessionCache) Get(userID int64) (core.User, bool) {
	return s.users.Get(strconv.FormatInt(userID, 10))
}

func (s *SessionCache) Put(u core.User) {
	s.users.Set(strconv.FormatInt(u.ID, 10), u)
}

func (s *SessionCache) Invalidate(userID int64) {
	s.users.Delete(strconv.FormatInt(userID, 10))
}

func (s *SessionCache) Size() int {
	return s.users.Size()
}

func (s *SessionCache) CleanExpired() int {
	return s.users.CleanExpired()
}
