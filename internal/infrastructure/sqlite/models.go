package sqlite

import (
	"fmt"
	"time"

	"github.com/zjrosen/polypad/internal/history"
)

// RunNotFoundError is returned when no run matches a lookup.
type RunNotFoundError struct {
	GUID string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run not found: %s", e.GUID)
}

// RunModel is the row shape of the runs table. Times are stored as Unix
// milliseconds.
type RunModel struct {
	ID         int64
	GUID       string
	Language   string
	CodeHash   string
	CodeBytes  int
	Status     string
	CacheHit   bool
	DurationNs int64
	CreatedAt  int64
}

func toRunModel(r *history.Run) *RunModel {
	return &RunModel{
		ID:         r.ID,
		GUID:       r.GUID,
		Language:   r.Language,
		CodeHash:   r.CodeHash,
		CodeBytes:  r.CodeBytes,
		Status:     string(r.Status),
		CacheHit:   r.CacheHit,
		DurationNs: int64(r.Duration),
		CreatedAt:  r.CreatedAt.UnixMilli(),
	}
}

func (m *RunModel) toDomain() *history.Run {
	return &history.Run{
		ID:        m.ID,
		GUID:      m.GUID,
		Language:  m.Language,
		CodeHash:  m.CodeHash,
		CodeBytes: m.CodeBytes,
		Status:    history.Status(m.Status),
		CacheHit:  m.CacheHit,
		Duration:  time.Duration(m.DurationNs),
		CreatedAt: time.UnixMilli(m.CreatedAt),
	}
}
