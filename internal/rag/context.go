package rag

import (
	"strings"

	"github.com/ttsoftware/ragline/internal/knowledge"
)

// contextSeparator joins retrieved passages into one grounding block.
const contextSeparator = "\n"

// BuildContext joins the retrieved texts in result order into a single
// grounding block. It is a pure function: an empty retrieval produces the
// empty string, which downstream completion treats as "no relevant context
// found" rather than an error.
func BuildContext(results []knowledge.Result) string {
	if len(results) == 0 {
		return ""
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Record.Content)
	}
	return strings.Join(texts, contextSeparator)
}
