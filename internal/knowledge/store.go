package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// searchTimeout bounds vector search queries to prevent blocking.
const searchTimeout = 10 * time.Second

// pgUndefinedTable is the PostgreSQL error code for a missing relation.
const pgUndefinedTable = "42P01"

// collectionNamePattern restricts collection names to safe SQL identifiers.
// The name is interpolated into DDL and queries, so it must never carry
// quoting characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// DB is the subset of pgxpool.Pool used by Store.
// Accepting the interface keeps Store testable without a live database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Config describes one collection.
type Config struct {
	// Collection is the table name holding the records.
	Collection string

	// Dimension is the embedding dimensionality of every record.
	Dimension int

	// Metric is the similarity metric, fixed for the collection's lifetime.
	Metric Metric
}

// Store manages the lifecycle of a vector collection and serves top-k
// similarity search against it.
//
// Store is safe for concurrent Search use by multiple goroutines.
type Store struct {
	db     DB
	cfg    Config
	logger *slog.Logger
}

// New creates a Store for the given collection.
// It validates the configuration but touches no database state;
// call Initialize or Reset before searching.
func New(db DB, cfg Config, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if !collectionNamePattern.MatchString(cfg.Collection) {
		return nil, fmt.Errorf("collection name %q must match %s", cfg.Collection, collectionNamePattern)
	}
	if cfg.Dimension < 1 {
		return nil, fmt.Errorf("%w: %d", ErrDimensionMismatch, cfg.Dimension)
	}
	if !cfg.Metric.valid() {
		return nil, fmt.Errorf("unsupported metric %q", cfg.Metric)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{db: db, cfg: cfg, logger: logger}, nil
}

// Dimension returns the collection's embedding dimensionality.
func (s *Store) Dimension() int { return s.cfg.Dimension }

// Collection returns the collection name.
func (s *Store) Collection() string { return s.cfg.Collection }

// Initialize creates the collection and its similarity index if absent.
// It is idempotent: calling it against an existing compatible collection is
// a no-op. A collection that already exists with a different embedding
// dimension fails with ErrCollectionExists rather than being silently
// reused, since mixed dimensions would make every search fail.
//
// After Initialize returns successfully, Search never errors due to missing
// schema or index.
func (s *Store) Initialize(ctx context.Context) error {
	existing, err := s.storedDimension(ctx)
	if err != nil {
		return err
	}
	if existing > 0 && existing != s.cfg.Dimension {
		return fmt.Errorf("%w: %q has dimension %d, want %d",
			ErrCollectionExists, s.cfg.Collection, existing, s.cfg.Dimension)
	}

	ddl := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id bigserial PRIMARY KEY,
			content text NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.cfg.Collection, s.cfg.Dimension)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating collection %q: %w", s.cfg.Collection, err)
	}

	// The metric is part of the index name so switching metrics creates an
	// index with the matching opclass instead of reusing the old one.
	idx := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_embedding_%s_idx ON %s USING ivfflat (embedding %s) WITH (lists = 128)`,
		s.cfg.Collection, s.cfg.Metric, s.cfg.Collection, s.cfg.Metric.opclass())
	if _, err := s.db.Exec(ctx, idx); err != nil {
		return fmt.Errorf("creating index on %q: %w", s.cfg.Collection, err)
	}

	s.logger.Debug("collection initialized",
		"collection", s.cfg.Collection,
		"dimension", s.cfg.Dimension,
		"metric", string(s.cfg.Metric),
	)
	return nil
}

// Reset drops the collection if present and recreates it empty.
// Safe to call when the collection does not exist.
func (s *Store) Reset(ctx context.Context) error {
	drop := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.cfg.Collection)
	if _, err := s.db.Exec(ctx, drop); err != nil {
		return fmt.Errorf("dropping collection %q: %w", s.cfg.Collection, err)
	}

	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.logger.Info("collection reset", "collection", s.cfg.Collection)
	return nil
}

// InsertSeed bulk-inserts seed records in a single transaction and returns
// the number of records inserted. The batch is atomic: either every record
// becomes visible or none do, and the commit completes before InsertSeed
// returns, so a subsequent Search observes every inserted record.
func (s *Store) InsertSeed(ctx context.Context, records []SeedRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	for i, r := range records {
		if len(r.Embedding) != s.cfg.Dimension {
			return 0, fmt.Errorf("%w: record %d has %d dimensions, want %d",
				ErrDimensionMismatch, i, len(r.Embedding), s.cfg.Dimension)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("seed transaction rollback failed", "error", rbErr)
		}
	}()

	count, err := tx.CopyFrom(ctx,
		pgx.Identifier{s.cfg.Collection},
		[]string{"content", "embedding"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return []any{records[i].Content, pgvector.NewVector(records[i].Embedding)}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting seed records into %q: %w", s.cfg.Collection, s.mapPgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing seed transaction: %w", err)
	}

	s.logger.Info("seed records inserted", "collection", s.cfg.Collection, "count", count)
	return count, nil
}

// Search returns the topK records most similar to the query vector, ordered
// by descending similarity with equal-distance ties broken by ascending id.
// If the collection holds fewer than topK records, all of them are returned.
//
// The tie-broken ORDER BY cannot be served by the approximate index, so the
// query is planned as an exact scan; retrieval is exact and deterministic.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	if len(queryVector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %q has %d",
			ErrDimensionMismatch, len(queryVector), s.cfg.Collection, s.cfg.Dimension)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT id, content, embedding %s $1 AS distance FROM %s ORDER BY distance, id LIMIT $2`,
		s.cfg.Metric.operator(), s.cfg.Collection)

	rows, err := s.db.Query(queryCtx, query, pgvector.NewVector(queryVector), topK)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", s.cfg.Collection, s.mapPgError(err))
	}
	defer rows.Close()

	results := make([]Result, 0, topK)
	for rows.Next() {
		var (
			id       int64
			content  string
			distance float64
		)
		if err := rows.Scan(&id, &content, &distance); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, Result{
			Record: Record{ID: id, Content: content},
			Score:  scoreFromDistance(distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching %q: %w", s.cfg.Collection, s.mapPgError(err))
	}

	s.logger.Debug("search completed", "collection", s.cfg.Collection, "top_k", topK, "results", len(results))
	return results, nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, s.cfg.Collection)
	if err := s.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting %q: %w", s.cfg.Collection, s.mapPgError(err))
	}
	return count, nil
}

// storedDimension returns the embedding dimension of the existing collection,
// or 0 when the collection does not exist. pgvector stores the declared
// dimension in the column's atttypmod.
func (s *Store) storedDimension(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = to_regclass($1) AND attname = 'embedding'`,
		s.cfg.Collection,
	).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inspecting collection %q: %w", s.cfg.Collection, err)
	}
	return dim, nil
}

// mapPgError converts an undefined-table error into ErrCollectionNotFound so
// callers can distinguish "never initialized" from "zero rows".
func (s *Store) mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, s.cfg.Collection)
	}
	return err
}
