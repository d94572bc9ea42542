package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ttsoftware/ragline/internal/log"
)

// ============================================================================
// Fakes
// ============================================================================

// fakeDB implements DB with configurable function fields.
// Unset fields fail the calling test via the embedded nil panic.
type fakeDB struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	beginFn    func(ctx context.Context) (pgx.Tx, error)

	execSQL []string
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	if f.execFn != nil {
		return f.execFn(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return f.queryFn(ctx, sql, args...)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.queryRowFn(ctx, sql, args...)
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return f.beginFn(ctx)
}

// fakeRow implements pgx.Row.
type fakeRow struct {
	scanFn func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scanFn(dest...) }

// noRow is a pgx.Row that reports no rows, as QueryRow does for a missing
// collection.
var noRow = fakeRow{scanFn: func(...any) error { return pgx.ErrNoRows }}

// dimRow returns a pgx.Row yielding the given stored dimension.
func dimRow(dim int) fakeRow {
	return fakeRow{scanFn: func(dest ...any) error {
		*(dest[0].(*int)) = dim
		return nil
	}}
}

// fakeRows implements the subset of pgx.Rows used by Search.
// The embedded interface covers the remaining methods; calling them panics,
// which fails the test loudly.
type fakeRows struct {
	pgx.Rows
	rows [][]any // each row: [id int64, content string, distance float64]
	idx  int
	err  error
}

func (r *fakeRows) Close() {}

func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	*(dest[0].(*int64)) = row[0].(int64)
	*(dest[1].(*string)) = row[1].(string)
	*(dest[2].(*float64)) = row[2].(float64)
	return nil
}

// fakeTx implements the subset of pgx.Tx used by InsertSeed.
type fakeTx struct {
	pgx.Tx
	copyCount int64
	copyErr   error
	commitErr error

	committed  bool
	rolledBack bool
}

func (t *fakeTx) CopyFrom(ctx context.Context, _ pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	if t.copyErr != nil {
		return 0, t.copyErr
	}
	var n int64
	for src.Next() {
		if _, err := src.Values(); err != nil {
			return n, err
		}
		n++
	}
	t.copyCount = n
	return n, nil
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func testStore(t *testing.T, db DB) *Store {
	t.Helper()
	s, err := New(db, Config{Collection: "texts", Dimension: 3, Metric: MetricL2}, log.NewNop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return s
}

// ============================================================================
// Constructor
// ============================================================================

func TestNew_Validation(t *testing.T) {
	db := &fakeDB{}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty collection", Config{Collection: "", Dimension: 3, Metric: MetricL2}},
		{"quoted collection", Config{Collection: `texts"; --`, Dimension: 3, Metric: MetricL2}},
		{"uppercase collection", Config{Collection: "Texts", Dimension: 3, Metric: MetricL2}},
		{"zero dimension", Config{Collection: "texts", Dimension: 0, Metric: MetricL2}},
		{"unknown metric", Config{Collection: "texts", Dimension: 3, Metric: Metric("cosine")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(db, tt.cfg, log.NewNop()); err == nil {
				t.Errorf("New(%+v) expected error", tt.cfg)
			}
		})
	}

	if _, err := New(nil, Config{Collection: "texts", Dimension: 3, Metric: MetricL2}, log.NewNop()); err == nil {
		t.Error("New(nil db) expected error")
	}
}

// ============================================================================
// Metric helpers
// ============================================================================

func TestMetricOperators(t *testing.T) {
	if op := MetricL2.operator(); op != "<->" {
		t.Errorf("MetricL2.operator() = %q", op)
	}
	if op := MetricInnerProduct.operator(); op != "<#>" {
		t.Errorf("MetricInnerProduct.operator() = %q", op)
	}
	if oc := MetricL2.opclass(); oc != "vector_l2_ops" {
		t.Errorf("MetricL2.opclass() = %q", oc)
	}
	if oc := MetricInnerProduct.opclass(); oc != "vector_ip_ops" {
		t.Errorf("MetricInnerProduct.opclass() = %q", oc)
	}
}

func TestScoreFromDistance(t *testing.T) {
	// Exact L2 match scores the maximum of the scale.
	if got := scoreFromDistance(0); got != 0 {
		t.Errorf("scoreFromDistance(0) = %f", got)
	}
	// Smaller distance must yield a strictly greater score.
	if scoreFromDistance(0.5) <= scoreFromDistance(1.5) {
		t.Error("score ordering is not descending-is-best")
	}
	// The <#> operator returns negated inner products; negating restores them.
	if got := scoreFromDistance(-0.9); got != 0.9 {
		t.Errorf("scoreFromDistance(-0.9) = %f", got)
	}
}

// ============================================================================
// Initialize / Reset
// ============================================================================

func TestInitialize_CreatesTableAndIndex(t *testing.T) {
	db := &fakeDB{
		queryRowFn: func(context.Context, string, ...any) pgx.Row { return noRow },
	}
	s := testStore(t, db)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}

	if len(db.execSQL) != 2 {
		t.Fatalf("expected 2 DDL statements, got %d: %v", len(db.execSQL), db.execSQL)
	}
	// Each metric gets its own index, so a metric change can never be
	// satisfied by an index built with another opclass.
	if !strings.Contains(db.execSQL[1], "texts_embedding_l2_idx") {
		t.Errorf("index DDL %q does not carry the metric in the index name", db.execSQL[1])
	}
	if !strings.Contains(db.execSQL[1], "vector_l2_ops") {
		t.Errorf("index DDL %q does not use the l2 opclass", db.execSQL[1])
	}
}

func TestInitialize_IncompatibleDimension(t *testing.T) {
	db := &fakeDB{
		queryRowFn: func(context.Context, string, ...any) pgx.Row { return dimRow(1536) },
	}
	s := testStore(t, db)

	err := s.Initialize(context.Background())
	if !errors.Is(err, ErrCollectionExists) {
		t.Fatalf("Initialize() = %v, want ErrCollectionExists", err)
	}
	if len(db.execSQL) != 0 {
		t.Errorf("no DDL should run on dimension conflict, got %v", db.execSQL)
	}
}

func TestInitialize_CompatibleExistingCollection(t *testing.T) {
	db := &fakeDB{
		queryRowFn: func(context.Context, string, ...any) pgx.Row { return dimRow(3) },
	}
	s := testStore(t, db)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() on compatible collection = %v", err)
	}
}

func TestReset_DropsThenInitializes(t *testing.T) {
	db := &fakeDB{
		queryRowFn: func(context.Context, string, ...any) pgx.Row { return noRow },
	}
	s := testStore(t, db)

	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() = %v", err)
	}

	// DROP TABLE, CREATE TABLE, CREATE INDEX.
	if len(db.execSQL) != 3 {
		t.Fatalf("expected 3 statements, got %d: %v", len(db.execSQL), db.execSQL)
	}
}

// ============================================================================
// InsertSeed
// ============================================================================

func TestInsertSeed_EmptyBatch(t *testing.T) {
	s := testStore(t, &fakeDB{})

	count, err := s.InsertSeed(context.Background(), nil)
	if err != nil {
		t.Fatalf("InsertSeed(nil) = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestInsertSeed_DimensionMismatch(t *testing.T) {
	s := testStore(t, &fakeDB{})

	_, err := s.InsertSeed(context.Background(), []SeedRecord{
		{Content: "ok", Embedding: []float32{1, 2, 3}},
		{Content: "bad", Embedding: []float32{1, 2}},
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("InsertSeed() = %v, want ErrDimensionMismatch", err)
	}
}

func TestInsertSeed_CommitsBatch(t *testing.T) {
	tx := &fakeTx{}
	db := &fakeDB{
		beginFn: func(context.Context) (pgx.Tx, error) { return tx, nil },
	}
	s := testStore(t, db)

	count, err := s.InsertSeed(context.Background(), []SeedRecord{
		{Content: "a", Embedding: []float32{1, 0, 0}},
		{Content: "b", Embedding: []float32{0, 1, 0}},
	})
	if err != nil {
		t.Fatalf("InsertSeed() = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestInsertSeed_RollsBackOnCopyError(t *testing.T) {
	tx := &fakeTx{copyErr: errors.New("copy failed")}
	db := &fakeDB{
		beginFn: func(context.Context) (pgx.Tx, error) { return tx, nil },
	}
	s := testStore(t, db)

	_, err := s.InsertSeed(context.Background(), []SeedRecord{
		{Content: "a", Embedding: []float32{1, 0, 0}},
	})
	if err == nil {
		t.Fatal("expected copy error")
	}
	if !tx.rolledBack {
		t.Error("transaction was not rolled back")
	}
}

// ============================================================================
// Search
// ============================================================================

func TestSearch_InvalidTopK(t *testing.T) {
	s := testStore(t, &fakeDB{})

	for _, k := range []int{0, -1} {
		if _, err := s.Search(context.Background(), []float32{1, 0, 0}, k); !errors.Is(err, ErrInvalidTopK) {
			t.Errorf("Search(topK=%d) = %v, want ErrInvalidTopK", k, err)
		}
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	s := testStore(t, &fakeDB{})

	_, err := s.Search(context.Background(), []float32{1, 0}, 3)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Search() = %v, want ErrDimensionMismatch", err)
	}
}

func TestSearch_MapsUndefinedTable(t *testing.T) {
	db := &fakeDB{
		queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return nil, &pgconn.PgError{Code: pgUndefinedTable}
		},
	}
	s := testStore(t, db)

	_, err := s.Search(context.Background(), []float32{1, 0, 0}, 3)
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("Search() = %v, want ErrCollectionNotFound", err)
	}
}

func TestSearch_NormalizesScores(t *testing.T) {
	db := &fakeDB{
		queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return &fakeRows{rows: [][]any{
				{int64(7), "closest", 0.0},
				{int64(2), "farther", 1.25},
			}}, nil
		},
	}
	s := testStore(t, db)

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Record.ID != 7 || results[0].Record.Content != "closest" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %f then %f", results[0].Score, results[1].Score)
	}
	if results[0].Score != 0 {
		t.Errorf("exact match score = %f, want 0", results[0].Score)
	}
}

func TestSearch_EmptyCollection(t *testing.T) {
	db := &fakeDB{
		queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return &fakeRows{}, nil
		},
	}
	s := testStore(t, db)

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search() on empty collection = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

// ============================================================================
// Count
// ============================================================================

func TestCount_MapsUndefinedTable(t *testing.T) {
	db := &fakeDB{
		queryRowFn: func(context.Context, string, ...any) pgx.Row {
			return fakeRow{scanFn: func(...any) error {
				return &pgconn.PgError{Code: pgUndefinedTable}
			}}
		},
	}
	s := testStore(t, db)

	_, err := s.Count(context.Background())
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("Count() = %v, want ErrCollectionNotFound", err)
	}
}
