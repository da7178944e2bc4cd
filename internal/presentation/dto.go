package presentation

import (
	"time"

	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/history"
)

// LanguageDTO represents a catalog entry for presentation
type LanguageDTO struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	RunLabel   string   `json:"run_label"`
	Extensions []string `json:"extensions"`
	Default    bool     `json:"default"`
}

// RunDTO represents a recorded run. Source code is never part of it.
type RunDTO struct {
	ID         string    `json:"id"`
	Language   string    `json:"language"`
	Status     string    `json:"status"`
	CacheHit   bool      `json:"cache_hit"`
	DurationMS int64     `json:"duration_ms"`
	CodeBytes  int       `json:"code_bytes"`
	CodeHash   string    `json:"code_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromCatalog converts catalog options to DTOs in display order.
func FromCatalog(opts []catalog.Option) []LanguageDTO {
	def := catalog.Default().ID
	dtos := make([]LanguageDTO, len(opts))
	for i, opt := range opts {
		exts := opt.Extensions
		if exts == nil {
			exts = []string{}
		}
		dtos[i] = LanguageDTO{
			ID:         string(opt.ID),
			Label:      opt.Label,
			RunLabel:   catalog.RunLabel(opt.ID),
			Extensions: exts,
			Default:    opt.ID == def,
		}
	}
	return dtos
}

// FromRuns converts history runs to DTOs, keeping their order.
func FromRuns(runs []*history.Run) []RunDTO {
	dtos := make([]RunDTO, 0, len(runs))
	for _, r := range runs {
		dtos = append(dtos, RunDTO{
			ID:         r.GUID,
			Language:   r.Language,
			Status:     string(r.Status),
			CacheHit:   r.CacheHit,
			DurationMS: r.Duration.Milliseconds(),
			CodeBytes:  r.CodeBytes,
			CodeHash:   r.CodeHash,
			CreatedAt:  r.CreatedAt,
		})
	}
	return dtos
}
