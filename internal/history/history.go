// Package history defines the record the execution service keeps for each
// run. Source code is never stored; a run is identified by a content hash.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Status mirrors how a run ended.
type Status string

const (
	StatusOK          Status = "ok"
	StatusFailed      Status = "failed"
	StatusTimeout     Status = "timeout"
	StatusMissing     Status = "missing"
	StatusUnsupported Status = "unsupported"
	StatusError       Status = "error"
	StatusCanceled    Status = "canceled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusOK, StatusFailed, StatusTimeout, StatusMissing, StatusUnsupported, StatusError, StatusCanceled:
		return true
	default:
		return false
	}
}

// Run is one handled execution request.
type Run struct {
	ID        int64         `json:"-"`
	GUID      string        `json:"id"`
	Language  string        `json:"language"`
	CodeHash  string        `json:"code_hash"`
	CodeBytes int           `json:"code_bytes"`
	Status    Status        `json:"status"`
	CacheHit  bool          `json:"cache_hit"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// ListFilter narrows Recent.
type ListFilter struct {
	// Language restricts results to one language when set.
	Language string
	// Limit caps the result count. Zero selects DefaultLimit.
	Limit int
}

// DefaultLimit is used when ListFilter.Limit is zero.
const DefaultLimit = 50

// Repository persists runs.
type Repository interface {
	// Save inserts run and assigns its ID.
	Save(run *Run) error
	// FindByGUID returns the run with guid or a not-found error.
	FindByGUID(guid string) (*Run, error)
	// Recent returns runs newest first.
	Recent(filter ListFilter) ([]*Run, error)
}

// Hash returns the content hash recorded for a language and source pair.
// The language is normalised the same way the service resolves it.
func Hash(language, code string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(language))))
	h.Write([]byte{0})
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}
