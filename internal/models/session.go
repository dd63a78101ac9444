package models

import "time"

// SessionStatus represents the status of an exploration session.
type SessionStatus string

const (
	SessionStatusEmpty   SessionStatus = "empty"
	SessionStatusLoading SessionStatus = "loading"
	SessionStatusReady   SessionStatus = "ready"
	SessionStatusError   SessionStatus = "error"
)

// Session is the client-visible state of one exploration session.
type Session struct {
	ID          string        `json:"id"`
	Status      SessionStatus `json:"status"`
	FileID      string        `json:"fileId,omitempty"`
	FileName    string        `json:"fileName,omitempty"`
	Hints       *LoadHints    `json:"hints,omitempty"`
	RowCount    int           `json:"rowCount"`
	ColumnCount int           `json:"columnCount"`
	LoadTimeMs  int64         `json:"loadTimeMs,omitempty"`
	CacheHit    bool          `json:"cacheHit,omitempty"`
	LastError   string        `json:"lastError,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// NewSession creates a session with no table loaded.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Status:    SessionStatusEmpty,
		CreatedAt: time.Now(),
	}
}

// Clone returns a copy safe to hand out of a lock.
func (s *Session) Clone() *Session {
	c := *s
	if s.Hints != nil {
		h := *s.Hints
		c.Hints = &h
	}
	return &c
}
