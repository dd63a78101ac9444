// Package cache memoizes loaded tables per session and file content.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/eda-explorer/backend/internal/models"
)

// DefaultSize is the number of tables kept when no size is configured.
const DefaultSize = 32

// Key identifies one load: the same bytes loaded with the same normalized
// hints in the same session give the same Table.
type Key struct {
	SessionID   string
	ContentHash string
	Kind        models.FileKind
	Sheet       string
	HeaderRow   int
}

// NewKey hashes data and folds in the normalized hints.
func NewKey(sessionID string, data []byte, hints models.LoadHints) Key {
	sum := sha256.Sum256(data)
	h := hints.Normalize()
	return Key{
		SessionID:   sessionID,
		ContentHash: hex.EncodeToString(sum[:]),
		Kind:        h.Kind,
		Sheet:       h.SheetName,
		HeaderRow:   h.HeaderRow,
	}
}

func (k Key) flightKey() string {
	return k.SessionID + "\x00" + k.ContentHash + "\x00" + string(k.Kind) + "\x00" + k.Sheet + "\x00" + strconv.Itoa(k.HeaderRow)
}

// LoadFunc produces the table on a miss.
type LoadFunc func() (*models.Table, error)

// TableCache is the memoization seam used by the session manager.
type TableCache interface {
	// GetOrLoad returns the cached table for key or calls load. hit reports
	// whether the table came from the cache.
	GetOrLoad(key Key, load LoadFunc) (t *models.Table, hit bool, err error)
	// DropSession evicts every entry of a session.
	DropSession(sessionID string)
	// Len returns the number of cached tables.
	Len() int
}

// LRU is a bounded TableCache. Concurrent misses on the same key share one
// load; failed loads are never stored.
type LRU struct {
	entries *lru.Cache[Key, *models.Table]
	group   singleflight.Group

	mu       sync.Mutex
	sessions map[string]map[Key]struct{}
}

// NewLRU creates a cache holding at most size tables.
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c := &LRU{sessions: make(map[string]map[Key]struct{})}
	entries, err := lru.NewWithEvict[Key, *models.Table](size, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// GetOrLoad implements TableCache.
func (c *LRU) GetOrLoad(key Key, load LoadFunc) (*models.Table, bool, error) {
	if t, ok := c.entries.Get(key); ok {
		return t, true, nil
	}

	type result struct {
		table *models.Table
		hit   bool
	}
	v, err, _ := c.group.Do(key.flightKey(), func() (any, error) {
		if t, ok := c.entries.Get(key); ok {
			return result{t, true}, nil
		}
		t, err := load()
		if err != nil {
			return nil, err
		}
		c.track(key)
		c.entries.Add(key, t)
		slog.Debug("[Cache] stored table", "session", key.SessionID, "kind", key.Kind, "sheet", key.Sheet, "headerRow", key.HeaderRow)
		return result{t, false}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(result)
	return r.table, r.hit, nil
}

// DropSession implements TableCache.
func (c *LRU) DropSession(sessionID string) {
	c.mu.Lock()
	keys := c.sessions[sessionID]
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	for k := range keys {
		c.entries.Remove(k)
	}
}

// Len implements TableCache.
func (c *LRU) Len() int {
	return c.entries.Len()
}

func (c *LRU) track(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, ok := c.sessions[key.SessionID]
	if !ok {
		keys = make(map[Key]struct{})
		c.sessions[key.SessionID] = keys
	}
	keys[key] = struct{}{}
}

func (c *LRU) onEvict(key Key, _ *models.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if keys, ok := c.sessions[key.SessionID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.sessions, key.SessionID)
		}
	}
}
