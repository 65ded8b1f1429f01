package cache

import (
	"sync"

	"gopherai-chat/internal/model"
)

// SessionCache is the process-local copy of every known session and the
// messages loaded for it so far.
//
// The collection is guarded by mu. Each entry has its own lock, held by
// Acquire callers for the whole of an operation, so work on one session is
// serialized while different sessions proceed independently. mu is never
// held while waiting for an entry lock.
type SessionCache struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	session *model.Session
	removed bool
}

func NewSessionCache() *SessionCache {
	return &SessionCache{entries: make(map[string]*entry)}
}

// Replace drops the cached state and installs sessions in the given order.
func (c *SessionCache) Replace(sessions []model.Session) {
	order := make([]string, 0, len(sessions))
	entries := make(map[string]*entry, len(sessions))
	for i := range sessions {
		s := sessions[i].Clone()
		if _, dup := entries[s.ID]; dup {
			continue
		}
		order = append(order, s.ID)
		entries[s.ID] = &entry{session: &s}
	}

	c.mu.Lock()
	c.order = order
	c.entries = entries
	c.mu.Unlock()
}

// Snapshot returns copies of the cached sessions in order.
func (c *SessionCache) Snapshot() []model.Session {
	c.mu.RLock()
	list := make([]*entry, 0, len(c.order))
	for _, id := range c.order {
		list = append(list, c.entries[id])
	}
	c.mu.RUnlock()

	out := make([]model.Session, 0, len(list))
	for _, e := range list {
		e.mu.Lock()
		if !e.removed {
			out = append(out, e.session.Clone())
		}
		e.mu.Unlock()
	}
	return out
}

// Add appends s. An existing entry with the same id is replaced in place.
func (c *SessionCache) Add(s *model.Session) {
	c.mu.Lock()
	e, ok := c.entries[s.ID]
	if !ok {
		c.order = append(c.order, s.ID)
		c.entries[s.ID] = &entry{session: s}
	}
	c.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.session = s
		e.mu.Unlock()
	}
}

// Acquire locks the session with the given id and hands it out for in-place
// mutation until release is called.
func (c *SessionCache) Acquire(id string) (session *model.Session, release func(), ok bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil, nil, false
	}
	return e.session, e.mu.Unlock, true
}

func (c *SessionCache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Remove deletes the session, waiting for any operation holding it.
func (c *SessionCache) Remove(id string) bool {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false
	}
	e.removed = true

	c.mu.Lock()
	defer c.mu.Unlock()
	// A refresh may have installed a new entry for id meanwhile; it goes too.
	delete(c.entries, id)
	for i, sid := range c.order {
		if sid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
