// Package api provides the HTTP server that receives LINE webhook events
// and answers text messages through the retrieval pipeline.
//
//	┌─────────────────────────────────────────────────────────┐
//	│                      HTTP Endpoints                     │
//	├─────────────────────────────────────────────────────────┤
//	│                                                         │
//	│  POST /webhook  →  LINE platform callback               │
//	│  GET  /health   →  liveness probe                       │
//	│  GET  /ready    →  readiness probe (DB + collection)    │
//	│                                                         │
//	└─────────────────────────────────────────────────────────┘
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, request ID, logging)
//   - ratelimit.go: per-IP token bucket rate limiting
//   - webhook.go: LINE webhook parsing and replies
//   - health.go: health check endpoints (/health, /ready)
//   - response.go: JSON response helpers
package api
