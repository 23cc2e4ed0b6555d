// Package knowledge holds the static document base behind rag_search and
// ranks documents against a free-text query.
package knowledge

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxResults applies when a caller passes a non-positive limit.
const DefaultMaxResults = 3

const (
	titleWeight   = 3
	contentWeight = 1
)

//go:embed documents.yaml
var documentsYAML []byte

// Document is one entry of the knowledge base.
type Document struct {
	Title    string `json:"title" yaml:"title"`
	Content  string `json:"content" yaml:"content"`
	Category string `json:"category" yaml:"category"`
}

// Base is an immutable, in-memory document set. Safe for concurrent use.
type Base struct {
	docs []Document
	// lowercased title/content, parallel to docs
	titles   []string
	contents []string
}

// Load parses the embedded document set.
func Load() (*Base, error) {
	return Parse(documentsYAML)
}

// MustLoad is Load for package-level wiring; it panics on a malformed embed.
func MustLoad() *Base {
	b, err := Load()
	if err != nil {
		panic(err)
	}
	return b
}

// Parse builds a Base from a YAML list of documents.
func Parse(data []byte) (*Base, error) {
	var docs []Document
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	return New(docs), nil
}

// New builds a Base from documents, preserving their order.
func New(docs []Document) *Base {
	b := &Base{
		docs:     append([]Document(nil), docs...),
		titles:   make([]string, len(docs)),
		contents: make([]string, len(docs)),
	}
	for i, d := range b.docs {
		b.titles[i] = strings.ToLower(d.Title)
		b.contents[i] = strings.ToLower(d.Content)
	}
	return b
}

// Documents returns a copy of every document in base order.
func (b *Base) Documents() []Document {
	return append([]Document(nil), b.docs...)
}

// Len reports the number of documents.
func (b *Base) Len() int { return len(b.docs) }

type scored struct {
	idx   int
	score int
}

// Search ranks documents by keyword overlap with query. Each whitespace
// separated word adds titleWeight when it occurs in the title and
// contentWeight when it occurs in the content. Matching is unanchored
// substring matching, so "la" also matches "calcul". Repeated query words
// count once per occurrence. Documents scoring zero are dropped; ties keep
// base order.
func (b *Base) Search(query string, maxResults int) []Document {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return []Document{}
	}

	hits := make([]scored, 0, len(b.docs))
	for i := range b.docs {
		score := 0
		for _, w := range words {
			if strings.Contains(b.titles[i], w) {
				score += titleWeight
			}
			if strings.Contains(b.contents[i], w) {
				score += contentWeight
			}
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	out := make([]Document, len(hits))
	for i, h := range hits {
		out[i] = b.docs[h.idx]
	}
	return out
}
