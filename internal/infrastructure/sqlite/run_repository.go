package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/polypad/internal/history"
	"github.com/zjrosen/polypad/internal/log"
)

const runColumns = `id, guid, language, code_hash, code_bytes, status, cache_hit, duration_ns, created_at`

type runRepository struct {
	db *sql.DB
}

func newRunRepository(db *sql.DB) *runRepository {
	return &runRepository{db: db}
}

var _ history.Repository = (*runRepository)(nil)

func scanRun(scanner interface{ Scan(...any) error }) (*RunModel, error) {
	var m RunModel
	err := scanner.Scan(
		&m.ID, &m.GUID, &m.Language, &m.CodeHash, &m.CodeBytes,
		&m.Status, &m.CacheHit, &m.DurationNs, &m.CreatedAt,
	)
	return &m, err
}

// Save inserts run, filling GUID and CreatedAt when unset.
func (r *runRepository) Save(run *history.Run) error {
	if run.GUID == "" {
		run.GUID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	m := toRunModel(run)

	result, err := r.db.Exec(
		`INSERT INTO runs (guid, language, code_hash, code_bytes, status, cache_hit, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.GUID, m.Language, m.CodeHash, m.CodeBytes, m.Status, m.CacheHit, m.DurationNs, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	log.Debug(log.CatDB, "run saved", "guid", run.GUID, "language", run.Language, "status", run.Status)
	return nil
}

// FindByGUID returns RunNotFoundError when no row matches.
func (r *runRepository) FindByGUID(guid string) (*history.Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE guid = ?`, guid)
	m, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &RunNotFoundError{GUID: guid}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return m.toDomain(), nil
}

// Recent lists runs newest first.
func (r *runRepository) Recent(filter history.ListFilter) ([]*history.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = history.DefaultLimit
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if filter.Language != "" {
		query += ` WHERE language = ?`
		args = append(args, filter.Language)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []*history.Run{}
	for rows.Next() {
		m, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, m.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
