// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statstream/papercrawler/internal/ingest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PaperStoreConfig controls the Postgres connection pool used for papers.
type PaperStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PaperStore persists papers and sync state in Postgres.
//
// It assumes the following schema:
//
//	CREATE TABLE papers (
//		identity_key TEXT PRIMARY KEY,
//		source       TEXT NOT NULL,
//		journal      TEXT NOT NULL,
//		title        TEXT NOT NULL,
//		authors      TEXT[] NOT NULL DEFAULT '{}',
//		published    TIMESTAMPTZ,
//		doi          TEXT,
//		url          TEXT,
//		abstract     TEXT,
//		bibtex       TEXT,
//		section      TEXT,
//		topics       TEXT[] NOT NULL DEFAULT '{}',
//		ordinal      INT NOT NULL,
//		ingested_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX papers_source_idx ON papers (source);
//
//	CREATE TABLE sync_state (
//		source       TEXT PRIMARY KEY,
//		last_run_at  TIMESTAMPTZ NOT NULL,
//		last_ordinal INT NOT NULL,
//		last_method  TEXT NOT NULL
//	);
type PaperStore struct {
	pool  querier
	table string
}

// NewPaperStore creates a Postgres-backed PaperStore using the provided config.
func NewPaperStore(ctx context.Context, cfg PaperStoreConfig) (*PaperStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "papers"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &PaperStore{pool: pool, table: table}, nil
}

// NewPaperStoreWithPool wraps an existing pool, used by tests with pgxmock.
func NewPaperStoreWithPool(pool querier, table string) (*PaperStore, error) {
	if table == "" {
		table = "papers"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PaperStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *PaperStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ExistingKeys returns the identity keys already stored for a source.
func (s *PaperStore) ExistingKeys(ctx context.Context, source string) (map[ingest.Key]struct{}, error) {
	query := fmt.Sprintf(`SELECT identity_key FROM %s WHERE source = $1`, s.table)
	rows, err := s.pool.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("query existing keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[ingest.Key]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan identity key: %w", err)
		}
		keys[ingest.Key(key)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing keys: %w", err)
	}
	return keys, nil
}

// InsertPapers writes the papers, skipping identity keys that already
// exist, and returns the number of rows actually inserted. Stored rows are
// never updated: the first writer wins.
func (s *PaperStore) InsertPapers(ctx context.Context, papers []ingest.Paper) (int, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (
	identity_key,
	source,
	journal,
	title,
	authors,
	published,
	doi,
	url,
	abstract,
	bibtex,
	section,
	topics,
	ordinal
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
ON CONFLICT (identity_key) DO NOTHING`, s.table)

	inserted := 0
	for _, paper := range papers {
		tag, err := s.pool.Exec(ctx, query,
			string(paper.IdentityKey()),
			paper.Source,
			paper.Journal,
			paper.Title,
			paper.Authors,
			paper.Published,
			paper.DOI,
			paper.URL,
			paper.Abstract,
			paper.BibTeX,
			paper.Section,
			paper.Topics,
			paper.Ordinal,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert paper %q: %w", paper.Title, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// SyncState returns the recorded state for a source. A source with no
// completed runs yields a zero state, not an error.
func (s *PaperStore) SyncState(ctx context.Context, source string) (ingest.SyncState, error) {
	query := `SELECT source, last_run_at, last_ordinal, last_method FROM sync_state WHERE source = $1`

	var (
		state  ingest.SyncState
		method string
	)
	err := s.pool.QueryRow(ctx, query, source).Scan(&state.Source, &state.LastRunAt, &state.LastOrdinal, &method)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.SyncState{}, nil
	}
	if err != nil {
		return ingest.SyncState{}, fmt.Errorf("query sync state: %w", err)
	}
	state.LastMethod = ingest.Method(method)
	return state, nil
}

// SaveSyncState upserts the state for a source.
func (s *PaperStore) SaveSyncState(ctx context.Context, state ingest.SyncState) error {
	query := `
INSERT INTO sync_state (source, last_run_at, last_ordinal, last_method)
VALUES ($1, $2, $3, $4)
ON CONFLICT (source) DO UPDATE
SET last_run_at = EXCLUDED.last_run_at,
    last_ordinal = EXCLUDED.last_ordinal,
    last_method = EXCLUDED.last_method`

	if _, err := s.pool.Exec(ctx, query, state.Source, state.LastRunAt, state.LastOrdinal, string(state.LastMethod)); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

// SourceCounts reports the number of stored papers per source.
func (s *PaperStore) SourceCounts(ctx context.Context) (map[string]int, error) {
	query := fmt.Sprintf(`SELECT source, COUNT(*) FROM %s GROUP BY source`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query source counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			source string
			count  int
		)
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		counts[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source counts: %w", err)
	}
	return counts, nil
}
