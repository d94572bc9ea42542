// Package rag composes embedding, retrieval, context assembly and
// completion into a single answer operation.
//
// Flow for one question:
//
//	question
//	     |
//	     v
//	Embedding (llm.Client)
//	     |
//	     v
//	Top-k search (knowledge.Store)
//	     |
//	     v
//	Grounding context (BuildContext)
//	     |
//	     v
//	Completion (llm.Client)
//	     |
//	     v
//	answer
//
// The pipeline is fail-closed: any stage error aborts the invocation and
// surfaces unchanged. A failed retrieval never degrades silently into an
// ungrounded completion.
//
// Pipeline holds no per-request state; concurrent Answer calls are
// independent.
package rag
