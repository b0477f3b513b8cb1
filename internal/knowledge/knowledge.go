// Package knowledge holds the static corpus the assistant answers from: the
// persona prompt, pre-authored answers with their question phrasings, the
// off-topic fallback pool and the suggested questions shown in the widget.
//
// A default corpus is embedded in the binary; deployments may replace it with
// a YAML file of the same shape.
package knowledge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/portfolio-assistant/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidCorpus is returned when a corpus fails validation.
var ErrInvalidCorpus = errors.New("knowledge: invalid corpus")

// Phrasing links one question wording to an answer key.
type Phrasing struct {
	Phrasing string `yaml:"phrasing"`
	Answer   string `yaml:"answer"`
}

// Corpus is the decoded knowledge file.
type Corpus struct {
	Persona     string            `yaml:"persona"`
	Answers     map[string]string `yaml:"answers"`
	Phrasings   []Phrasing        `yaml:"phrasings"`
	Fallbacks   []string          `yaml:"fallbacks"`
	Suggestions []string          `yaml:"suggestions"`
}

// Default returns the embedded corpus.
func Default() (*Corpus, error) {
	return Load(bytes.NewReader(defaultYAML))
}

// LoadFile reads a corpus from path. An empty path yields the default.
func LoadFile(path string) (*Corpus, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a corpus. Unknown keys are rejected.
func Load(r io.Reader) (*Corpus, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Corpus
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCorpus, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks referential integrity of the corpus.
func (c *Corpus) Validate() error {
	if strings.TrimSpace(c.Persona) == "" {
		return fmt.Errorf("%w: persona is empty", ErrInvalidCorpus)
	}
	if len(c.Fallbacks) == 0 {
		return fmt.Errorf("%w: fallback pool is empty", ErrInvalidCorpus)
	}
	for i, f := range c.Fallbacks {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: fallback %d is blank", ErrInvalidCorpus, i)
		}
	}
	for i, p := range c.Phrasings {
		if strings.TrimSpace(p.Phrasing) == "" {
			return fmt.Errorf("%w: phrasing %d is blank", ErrInvalidCorpus, i)
		}
		if ans, ok := c.Answers[p.Answer]; !ok || strings.TrimSpace(ans) == "" {
			return fmt.Errorf("%w: phrasing %q references unknown answer %q", ErrInvalidCorpus, p.Phrasing, p.Answer)
		}
	}
	return nil
}

// Entries flattens phrasings into canned entries, preserving file order.
func (c *Corpus) Entries() []domain.CannedEntry {
	out := make([]domain.CannedEntry, 0, len(c.Phrasings))
	for _, p := range c.Phrasings {
		out = append(out, domain.CannedEntry{Phrasing: p.Phrasing, Answer: c.Answers[p.Answer]})
	}
	return out
}
