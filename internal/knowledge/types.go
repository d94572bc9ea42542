package knowledge

import "errors"

var (
	// ErrCollectionNotFound indicates the collection was never initialized.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists indicates the collection exists with an
	// incompatible embedding dimension.
	ErrCollectionExists = errors.New("collection exists with incompatible dimension")

	// ErrDimensionMismatch indicates a vector whose length disagrees with
	// the collection's embedding dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidTopK indicates a non-positive top-k.
	ErrInvalidTopK = errors.New("top_k must be positive")
)

// Metric identifies the similarity metric of a collection.
// It is fixed when the Store is constructed and never mixed within a
// collection.
type Metric string

const (
	// MetricL2 orders by Euclidean distance (pgvector <-> operator).
	MetricL2 Metric = "l2"

	// MetricInnerProduct orders by inner product (pgvector <#> operator).
	MetricInnerProduct Metric = "ip"
)

// operator returns the pgvector distance operator for the metric.
func (m Metric) operator() string {
	if m == MetricInnerProduct {
		return "<#>"
	}
	return "<->"
}

// opclass returns the pgvector index operator class for the metric.
func (m Metric) opclass() string {
	if m == MetricInnerProduct {
		return "vector_ip_ops"
	}
	return "vector_l2_ops"
}

// valid reports whether the metric is one of the supported values.
func (m Metric) valid() bool {
	return m == MetricL2 || m == MetricInnerProduct
}

// scoreFromDistance converts a pgvector distance into a descending-is-best
// similarity score. Both operators return "smaller is more similar" values
// (<#> yields the negated inner product), so negating the distance yields a
// single descending-is-best ordering for either metric. An exact L2 match
// scores 0, the maximum on that scale.
func scoreFromDistance(distance float64) float32 {
	return float32(-distance)
}

// Record is one stored text with its auto-assigned id.
// Records are immutable once inserted and destroyed only by Reset.
type Record struct {
	ID      int64
	Content string
}

// Result is a single retrieval hit with its similarity score.
type Result struct {
	Record Record
	Score  float32
}

// SeedRecord is one corpus entry to bulk-insert during seeding.
type SeedRecord struct {
	Content   string
	Embedding []float32
}
