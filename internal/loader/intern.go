package loader

import "sync"

// MaxInternPoolSize stops the pool from growing without bound on columns of
// unique strings.
const MaxInternPoolSize = 500000

// StringIntern makes equal text cells share one backing string. Categorical
// columns repeat a handful of values across many rows.
type StringIntern struct {
	mu   sync.RWMutex
	pool map[string]string
}

// NewStringIntern creates an empty pool.
func NewStringIntern() *StringIntern {
	return &StringIntern{pool: make(map[string]string, 1024)}
}

// Intern returns the pooled copy of s, storing s if it is new and the pool
// has room.
func (si *StringIntern) Intern(s string) string {
	si.mu.RLock()
	if pooled, ok := si.pool[s]; ok {
		si.mu.RUnlock()
		return pooled
	}
	full := len(si.pool) >= MaxInternPoolSize
	si.mu.RUnlock()
	if full {
		return s
	}

	si.mu.Lock()
	defer si.mu.Unlock()
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		return s
	}
	si.pool[s] = s
	return s
}

// Len returns the number of pooled strings.
func (si *StringIntern) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.pool)
}
