// Package session keeps the per-user exploration state: the loaded table,
// its explorer store and the bookkeeping needed to expire idle sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eda-explorer/backend/internal/cache"
	"github.com/eda-explorer/backend/internal/describe"
	"github.com/eda-explorer/backend/internal/explorer"
	"github.com/eda-explorer/backend/internal/loader"
	"github.com/eda-explorer/backend/internal/logging"
	"github.com/eda-explorer/backend/internal/models"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoTable is returned when a view is asked before any file is loaded.
	ErrNoTable = errors.New("no table loaded in session")
	// ErrTooManySessions is returned when every slot is busy loading.
	ErrTooManySessions = errors.New("too many active sessions")
)

// Config bounds the session pool.
type Config struct {
	// MaxSessions limits concurrent sessions to prevent memory exhaustion.
	MaxSessions int
	// KeepAliveWindow protects recently used sessions from cleanup.
	KeepAliveWindow time.Duration
	Explorer        explorer.Config
}

// DefaultConfig returns the pool settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxSessions:     20,
		KeepAliveWindow: 5 * time.Minute,
		Explorer:        explorer.DefaultConfig(),
	}
}

// Manager handles active exploration sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	registry *loader.Registry
	cache    cache.TableCache
	cfg      Config
}

// SessionState holds the session metadata, its table and the lazily built
// explorer store.
type SessionState struct {
	Session      *models.Session
	Table        *models.Table
	Explorer     *explorer.Store
	LastAccessed time.Time

	// loadMu serializes loads and explorer builds within one session.
	loadMu sync.Mutex
	// storeMu is held shared by running queries and exclusively while the
	// explorer store is closed.
	storeMu sync.RWMutex
}

// NewManager creates a session manager backed by registry and tables.
func NewManager(registry *loader.Registry, tables cache.TableCache, cfg Config) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultConfig().MaxSessions
	}
	if cfg.KeepAliveWindow <= 0 {
		cfg.KeepAliveWindow = DefaultConfig().KeepAliveWindow
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		registry: registry,
		cache:    tables,
		cfg:      cfg,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// CreateSession opens an empty session, evicting the least recently used
// idle session when the pool is full.
func (m *Manager) CreateSession() (*models.Session, error) {
	if err := m.evictIfFull(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	state := &SessionState{
		Session:      models.NewSession(id),
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.sessions[id] = state
	m.mu.Unlock()

	slog.Info(fmt.Sprintf("[Session %s] created", shortID(id)))
	return state.Session.Clone(), nil
}

func (m *Manager) evictIfFull() error {
	m.mu.Lock()
	if len(m.sessions) < m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil
	}

	var victim string
	var oldest time.Time
	for id, state := range m.sessions {
		if state.Session.Status == models.SessionStatusLoading {
			continue
		}
		if victim == "" || state.LastAccessed.Before(oldest) {
			victim, oldest = id, state.LastAccessed
		}
	}
	if victim == "" {
		m.mu.Unlock()
		return ErrTooManySessions
	}
	state := m.sessions[victim]
	delete(m.sessions, victim)
	m.mu.Unlock()

	m.release(victim, state)
	slog.Info(fmt.Sprintf("[Manager] evicted idle session %s to free memory", shortID(victim)))
	return nil
}

// release frees everything a removed session holds.
func (m *Manager) release(id string, state *SessionState) {
	state.loadMu.Lock()
	m.mu.Lock()
	store := state.Explorer
	state.Explorer = nil
	m.mu.Unlock()
	state.loadMu.Unlock()

	closeStore(context.Background(), id, state, store)
	if m.cache != nil {
		m.cache.DropSession(id)
	}
}

// GetSession returns a snapshot of the session.
func (m *Manager) GetSession(id string) (*models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Session.Clone(), true
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// DeleteSession ends a session and drops its table and cache entries.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.release(id, state)
	slog.Info(fmt.Sprintf("[Session %s] deleted", shortID(id)))
	return true
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadTable parses data with hints and makes it the session's table. On
// failure the previous table stays in place and the error is recorded on
// the session.
func (m *Manager) LoadTable(ctx context.Context, id, fileID, fileName string, data []byte, hints models.LoadHints) (*models.Session, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	state.loadMu.Lock()
	defer state.loadMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	prevFile := state.Session.FileID
	state.Session.Status = models.SessionStatusLoading
	state.LastAccessed = time.Now()
	m.mu.Unlock()

	if prevFile != "" && prevFile != fileID && m.cache != nil {
		m.cache.DropSession(id)
	}

	start := time.Now()
	hints = hints.Normalize()
	log := logging.WithFields(ctx, "session", shortID(id))
	log.Info(fmt.Sprintf("[Session %s] loading %s", shortID(id), fileName), "kind", hints.Kind, "sheet", hints.SheetName, "headerRow", hints.HeaderRow, "bytes", len(data))

	load := func() (*models.Table, error) { return m.registry.Load(data, hints) }
	var (
		t   *models.Table
		hit bool
		err error
	)
	if m.cache != nil {
		t, hit, err = m.cache.GetOrLoad(cache.NewKey(id, data, hints), load)
	} else {
		t, err = load()
	}
	elapsed := time.Since(start).Milliseconds()

	m.mu.Lock()
	if err != nil {
		state.Session.LastError = err.Error()
		if state.Table != nil {
			state.Session.Status = models.SessionStatusReady
		} else {
			state.Session.Status = models.SessionStatusError
		}
		m.mu.Unlock()
		log.Warn(fmt.Sprintf("[Session %s] load failed", shortID(id)), "error", err)
		return nil, err
	}

	// A cache hit can hand back the table already loaded; its store stays.
	var oldStore *explorer.Store
	if state.Table != t {
		oldStore = state.Explorer
		state.Explorer = nil
	}
	state.Table = t
	state.Session.Status = models.SessionStatusReady
	state.Session.FileID = fileID
	state.Session.FileName = fileName
	h := hints
	state.Session.Hints = &h
	state.Session.RowCount = t.NumRows()
	state.Session.ColumnCount = t.NumCols()
	state.Session.LoadTimeMs = elapsed
	state.Session.CacheHit = hit
	state.Session.LastError = ""
	snapshot := state.Session.Clone()
	m.mu.Unlock()

	closeStore(ctx, id, state, oldStore)

	log.Info(fmt.Sprintf("[Session %s] load complete", shortID(id)), "rows", t.NumRows(), "columns", t.NumCols(), "cacheHit", hit, "elapsedMs", elapsed)
	return snapshot, nil
}

// Table returns the session's current table.
func (m *Manager) Table(id string) (*models.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	state.LastAccessed = time.Now()
	if state.Table == nil {
		return nil, ErrNoTable
	}
	return state.Table, nil
}

// Describe computes a view of the session's table.
func (m *Manager) Describe(id string, sel models.ViewSelection) (*models.ViewResult, error) {
	t, err := m.Table(id)
	if err != nil {
		return nil, err
	}
	return describe.Describe(t, sel)
}

// Preview returns a page of the session's table.
func (m *Manager) Preview(id string, page, pageSize int) (*models.PreviewPage, error) {
	t, err := m.Table(id)
	if err != nil {
		return nil, err
	}
	return describe.Preview(t, page, pageSize), nil
}

// TextFields lists the columns value counts can be asked for.
func (m *Manager) TextFields(id string) ([]string, error) {
	t, err := m.Table(id)
	if err != nil {
		return nil, err
	}
	return describe.TextFields(t), nil
}

// explorerStore returns the session's aggregation store, building it from
// the current table on first use.
func (m *Manager) explorerStore(ctx context.Context, id string, state *SessionState) (*explorer.Store, error) {
	state.loadMu.Lock()
	defer state.loadMu.Unlock()

	m.mu.Lock()
	if m.sessions[id] != state {
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	state.LastAccessed = time.Now()
	t := state.Table
	store := state.Explorer
	m.mu.Unlock()

	if t == nil {
		return nil, ErrNoTable
	}
	if store != nil {
		return store, nil
	}

	store, err := explorer.NewStore(ctx, t, m.cfg.Explorer)
	if err != nil {
		return nil, fmt.Errorf("build explorer store: %w", err)
	}

	m.mu.Lock()
	state.Explorer = store
	m.mu.Unlock()
	logging.WithFields(ctx, "session", shortID(id)).Info(fmt.Sprintf("[Session %s] explorer store ready", shortID(id)), "rows", store.Len())
	return store, nil
}

// Aggregate runs an explorer query against the session's current table.
// The store cannot be closed while the query runs; if a reload replaces it
// first, the query moves to the new store.
func (m *Manager) Aggregate(ctx context.Context, id string, q explorer.Query) (*explorer.Result, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	for {
		store, err := m.explorerStore(ctx, id, state)
		if err != nil {
			return nil, err
		}

		state.storeMu.RLock()
		m.mu.RLock()
		current := state.Explorer
		m.mu.RUnlock()
		if current == store {
			res, err := store.Aggregate(ctx, q)
			state.storeMu.RUnlock()
			return res, err
		}
		state.storeMu.RUnlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// closeStore waits for running queries, then closes store. The caller must
// already have detached store from state.
func closeStore(ctx context.Context, id string, state *SessionState, store *explorer.Store) {
	if store == nil {
		return
	}
	state.storeMu.Lock()
	defer state.storeMu.Unlock()
	if err := store.Close(); err != nil {
		logging.FromContext(ctx).Warn(fmt.Sprintf("[Session %s] closing explorer store failed", shortID(id)), "error", err)
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but
// keeps sessions accessed within the keep-alive window and sessions that
// are loading.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-m.cfg.KeepAliveWindow)

	removed := make(map[string]*SessionState)
	m.mu.Lock()
	for id, state := range m.sessions {
		if state.Session.Status == models.SessionStatusLoading {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			removed[id] = state
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for id, state := range removed {
		m.release(id, state)
		slog.Info(fmt.Sprintf("[Manager] cleaned up aged session %s (last accessed: %s ago)",
			shortID(id), now.Sub(state.LastAccessed).Round(time.Second)))
	}
	return len(removed)
}

// StartCleanup runs CleanupOldSessions every interval until ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanupOldSessions(maxAge)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*SessionState)
	m.mu.Unlock()

	for id, state := range all {
		m.release(id, state)
	}
}
