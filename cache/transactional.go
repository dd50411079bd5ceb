package cache

import "sync"

// Transactional stages L2 cache writes for the lifetime of a session so a
// rolled-back transaction never lets other sessions observe entries it
// wrote, and a session's own misses against the L2 store during a
// transaction are remembered and nulled out on commit rather than
// re-queried. Equivalent to org.apache.ibatis.cache.decorators.TransactionalCache.
type Transactional struct {
	id       string
	delegate Cache

	mu               sync.Mutex
	clearOnCommit    bool
	entriesToAddOnCommit map[string]stagedEntry
	entriesMissedInCache map[string]*Key
}

type stagedEntry struct {
	key   *Key
	value any
}

func NewTransactional(delegate Cache) *Transactional {
	return &Transactional{
		id:                   delegate.ID(),
		delegate:             delegate,
		entriesToAddOnCommit: map[string]stagedEntry{},
		entriesMissedInCache: map[string]*Key{},
	}
}

func (c *Transactional) ID() string { return c.id }

// Get consults the delegate directly (uncommitted writes never satisfy a
// read within the same cache, matching TransactionalCache.getObject), and
// remembers a miss so Commit can null it out for other sessions per the
// blocking-cache contract those decorators expect. Once Clear has set
// clearOnCommit, this cache is unreadable until the next commit/rollback:
// every Get returns null regardless of what the delegate still holds,
// matching TransactionalCache.getObject's "if (clearOnCommit) return null"
// check, which runs after the miss is recorded but before the delegate's
// value (if any) is handed back.
func (c *Transactional) Get(key *Key) (any, bool) {
	v, ok := c.delegate.Get(key)
	if !ok {
		c.mu.Lock()
		c.entriesMissedInCache[key.String()] = key
		c.mu.Unlock()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearOnCommit {
		return nil, false
	}
	return v, ok
}

// Put stages value without touching the delegate until Commit.
func (c *Transactional) Put(key *Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entriesToAddOnCommit[key.String()] = stagedEntry{key: key, value: value}
}

// Remove is implemented as Clear-on-commit, matching TransactionalCache's
// choice not to track individual staged removals.
func (c *Transactional) Remove(key *Key) {
	c.Clear()
}

// Clear discards staged writes and marks the delegate for a full wipe at
// commit, without touching the delegate now (so concurrent readers in
// other sessions are unaffected until this transaction actually commits).
func (c *Transactional) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearOnCommit = true
	c.entriesToAddOnCommit = map[string]stagedEntry{}
}

// Commit flushes staged writes into the delegate and nulls out any keys
// that were missed during the transaction, then resets staging state.
func (c *Transactional) Commit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearOnCommit {
		c.delegate.Clear()
	}
	c.flushPendingEntries()
	c.reset()
}

// Rollback discards all staged writes and removes every key this
// transaction missed from the delegate, then resets staging state.
func (c *Transactional) Rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unlockMissedEntries()
	c.reset()
}

func (c *Transactional) flushPendingEntries() {
	for _, e := range c.entriesToAddOnCommit {
		c.delegate.Put(e.key, e.value)
	}
	for k, key := range c.entriesMissedInCache {
		if _, staged := c.entriesToAddOnCommit[k]; !staged {
			c.delegate.Put(key, nil)
		}
	}
}

func (c *Transactional) unlockMissedEntries() {
	for _, key := range c.entriesMissedInCache {
		c.delegate.Remove(key)
	}
}

func (c *Transactional) reset() {
	c.clearOnCommit = false
	c.entriesToAddOnCommit = map[string]stagedEntry{}
	c.entriesMissedInCache = map[string]*Key{}
}

// Manager tracks one Transactional wrapper per underlying namespace cache
// for the lifetime of a session/transaction, equivalent to
// org.apache.ibatis.cache.TransactionalCacheManager.
type Manager struct {
	mu    sync.Mutex
	byID  map[string]*Transactional
}

func NewManager() *Manager {
	return &Manager{byID: map[string]*Transactional{}}
}

func (m *Manager) txFor(c Cache) *Transactional {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byID[c.ID()]
	if !ok {
		tx = NewTransactional(c)
		m.byID[c.ID()] = tx
	}
	return tx
}

func (m *Manager) Get(c Cache, key *Key) (any, bool) { return m.txFor(c).Get(key) }
func (m *Manager) Put(c Cache, key *Key, value any)  { m.txFor(c).Put(key, value) }
func (m *Manager) Clear(c Cache)                     { m.txFor(c).Clear() }

func (m *Manager) Commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.byID {
		tx.Commit()
	}
}

func (m *Manager) Rollback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.byID {
		tx.Rollback()
	}
}
