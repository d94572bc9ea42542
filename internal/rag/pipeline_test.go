package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/ttsoftware/ragline/internal/knowledge"
	"github.com/ttsoftware/ragline/internal/log"
)

// ============================================================================
// Mocks
// ============================================================================

type mockEmbedder struct {
	vector    []float32
	err       error
	callCount int
	lastText  string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.callCount++
	m.lastText = text
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

type mockSearcher struct {
	results   []knowledge.Result
	err       error
	callCount int
	lastVec   []float32
	lastTopK  int
}

func (m *mockSearcher) Search(_ context.Context, vec []float32, topK int) ([]knowledge.Result, error) {
	m.callCount++
	m.lastVec = vec
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockCompleter struct {
	answer        string
	err           error
	callCount     int
	lastQuestion  string
	lastGrounding string
}

func (m *mockCompleter) Complete(_ context.Context, question, grounding string) (string, error) {
	m.callCount++
	m.lastQuestion = question
	m.lastGrounding = grounding
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func newTestPipeline(t *testing.T, e *mockEmbedder, s *mockSearcher, c *mockCompleter) *Pipeline {
	t.Helper()
	p, err := New(e, s, c, 3, log.NewNop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return p
}

// ============================================================================
// Constructor
// ============================================================================

func TestNew_RequiresComponents(t *testing.T) {
	e := &mockEmbedder{}
	s := &mockSearcher{}
	c := &mockCompleter{}

	if _, err := New(nil, s, c, 3, nil); err == nil {
		t.Error("New() without embedder should fail")
	}
	if _, err := New(e, nil, c, 3, nil); err == nil {
		t.Error("New() without searcher should fail")
	}
	if _, err := New(e, s, nil, 3, nil); err == nil {
		t.Error("New() without completer should fail")
	}
	if _, err := New(e, s, c, 0, nil); err == nil {
		t.Error("New() with zero topK should fail")
	}
}

// ============================================================================
// Answer
// ============================================================================

func TestAnswer_HappyPath(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1, 0.2}}
	searcher := &mockSearcher{results: []knowledge.Result{
		{Record: knowledge.Record{ID: 1, Content: "T.T. Software provides web development services."}, Score: -0.1},
		{Record: knowledge.Record{ID: 2, Content: "T.T. Software is based in Bangkok."}, Score: -0.4},
	}}
	completer := &mockCompleter{answer: "We provide web development services."}

	p := newTestPipeline(t, embedder, searcher, completer)

	answer, err := p.Answer(context.Background(), "What services does T.T. Software provide?")
	if err != nil {
		t.Fatalf("Answer() = %v", err)
	}
	if answer != "We provide web development services." {
		t.Errorf("answer = %q", answer)
	}

	if embedder.lastText != "What services does T.T. Software provide?" {
		t.Errorf("embedder got %q", embedder.lastText)
	}
	if searcher.lastTopK != 3 {
		t.Errorf("searcher topK = %d, want 3", searcher.lastTopK)
	}
	if searcher.lastVec[0] != 0.1 {
		t.Errorf("searcher got vector %v", searcher.lastVec)
	}
	wantGrounding := "T.T. Software provides web development services.\nT.T. Software is based in Bangkok."
	if completer.lastGrounding != wantGrounding {
		t.Errorf("grounding = %q, want %q", completer.lastGrounding, wantGrounding)
	}
}

func TestAnswer_EmptyRetrievalStillCompletes(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.5}}
	searcher := &mockSearcher{results: nil}
	completer := &mockCompleter{answer: "Answering from general knowledge."}

	p := newTestPipeline(t, embedder, searcher, completer)

	answer, err := p.Answer(context.Background(), "Unrelated question")
	if err != nil {
		t.Fatalf("Answer() with empty retrieval = %v", err)
	}
	if answer == "" {
		t.Error("expected non-empty answer")
	}
	if completer.lastGrounding != "" {
		t.Errorf("grounding = %q, want empty", completer.lastGrounding)
	}
}

func TestAnswer_FailClosed(t *testing.T) {
	sentinel := errors.New("stage failure")

	tests := []struct {
		name      string
		embedder  *mockEmbedder
		searcher  *mockSearcher
		completer *mockCompleter
		// stages that must never run after the failure
		wantSearchCalls   int
		wantCompleteCalls int
	}{
		{
			name:              "embed failure aborts before search",
			embedder:          &mockEmbedder{err: sentinel},
			searcher:          &mockSearcher{},
			completer:         &mockCompleter{},
			wantSearchCalls:   0,
			wantCompleteCalls: 0,
		},
		{
			name:              "search failure aborts before completion",
			embedder:          &mockEmbedder{vector: []float32{1}},
			searcher:          &mockSearcher{err: sentinel},
			completer:         &mockCompleter{},
			wantSearchCalls:   1,
			wantCompleteCalls: 0,
		},
		{
			name:              "completion failure surfaces",
			embedder:          &mockEmbedder{vector: []float32{1}},
			searcher:          &mockSearcher{},
			completer:         &mockCompleter{err: sentinel},
			wantSearchCalls:   1,
			wantCompleteCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, tt.embedder, tt.searcher, tt.completer)

			_, err := p.Answer(context.Background(), "question")
			if !errors.Is(err, sentinel) {
				t.Fatalf("Answer() = %v, want the stage error", err)
			}
			if tt.searcher.callCount != tt.wantSearchCalls {
				t.Errorf("search calls = %d, want %d", tt.searcher.callCount, tt.wantSearchCalls)
			}
			if tt.completer.callCount != tt.wantCompleteCalls {
				t.Errorf("complete calls = %d, want %d", tt.completer.callCount, tt.wantCompleteCalls)
			}
		})
	}
}

func TestAnswer_ErrorTaxonomyPassesThrough(t *testing.T) {
	// Component sentinel errors must survive the pipeline's wrapping so the
	// messaging adapter can still classify them.
	embedder := &mockEmbedder{err: knowledge.ErrDimensionMismatch}
	p := newTestPipeline(t, embedder, &mockSearcher{}, &mockCompleter{})

	_, err := p.Answer(context.Background(), "question")
	if !errors.Is(err, knowledge.ErrDimensionMismatch) {
		t.Fatalf("Answer() = %v, want wrapped ErrDimensionMismatch", err)
	}
}
