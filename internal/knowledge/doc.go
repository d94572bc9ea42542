// Package knowledge manages the vector collection backing retrieval.
//
// A collection is a single PostgreSQL table of (id, content, embedding)
// records plus a similarity index over the embedding column, built on
// pgvector. The Store owns the collection lifecycle:
//
//	Initialize(ctx)            - create-if-absent table and index
//	Reset(ctx)                 - drop and recreate, safe when absent
//	InsertSeed(ctx, records)   - transactional bulk insert, returns count
//	Search(ctx, vector, topK)  - top-k nearest neighbours
//	Count(ctx)                 - number of stored records
//
// The similarity metric (L2 or inner product) is fixed per Store and never
// mixed within a collection. Search normalizes both metrics into a single
// descending-is-best score and breaks equal-distance ties by ascending
// record id, so results are deterministic.
//
// Initialize and Reset are administrative and expected to run before normal
// traffic begins. Search is safe for concurrent use; running Reset while
// Search traffic is in flight is not supported.
package knowledge
