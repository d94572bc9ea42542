// Package seed provides the knowledge corpus used to populate the vector
// store. A built-in corpus covers the company profile; operators can supply
// their own corpus file instead, one entry per line.
package seed

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// defaultCorpus is the built-in company knowledge base. It is used when no
// corpus file is configured.
var defaultCorpus = []string{
	"T.T. Software provides web development services.",
	"T.T. Software specializes in ASP.NET Core, Angular, and cloud solutions on Microsoft Azure.",
	"T.T. Software is based in Bangkok.",
	"T.T. Software offers custom software development for enterprise customers.",
	"T.T. Software builds chatbots and AI-powered assistants for business messaging platforms.",
	"T.T. Software can be contacted through its website for project inquiries and quotations.",
}

// Default returns a copy of the built-in corpus.
func Default() []string {
	out := make([]string, len(defaultCorpus))
	copy(out, defaultCorpus)
	return out
}

// LoadFile reads a corpus file with one entry per line. Blank lines and lines
// starting with '#' are skipped. Returns an error when the file yields no
// entries, so a typo'd path or empty file cannot silently wipe the corpus on
// the next reseed.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no entries", path)
	}
	return entries, nil
}

// Load returns the corpus entries to seed with. When path is empty the
// built-in corpus is used.
func Load(path string) ([]string, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
