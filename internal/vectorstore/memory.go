package vectorstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// DefaultTopK is the number of passages retrieved per query.
const DefaultTopK = 5

type memoryChunk struct {
	docID  string
	text   string
	terms  map[string]int
	length int
}

// MemoryStore keeps chunks in process and retrieves them by term overlap.
type MemoryStore struct {
	namespace string
	answerer  *Answerer
	topK      int

	mu     sync.RWMutex
	chunks []memoryChunk
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(namespace string, answerer *Answerer) *MemoryStore {
	return &MemoryStore{namespace: namespace, answerer: answerer, topK: DefaultTopK}
}

func (s *MemoryStore) Add(_ context.Context, doc Document) error {
	if strings.TrimSpace(doc.Content) == "" {
		return &Error{Op: "add", Namespace: s.namespace, Message: "empty document " + doc.ID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, text := range SplitText(doc.Content, DefaultChunkSize, DefaultChunkOverlap) {
		terms := tokenize(text)
		s.chunks = append(s.chunks, memoryChunk{docID: doc.ID, text: text, terms: terms, length: len(terms)})
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, prompt string) (string, error) {
	passages := s.retrieve(prompt)
	answer, err := s.answerer.Answer(ctx, prompt, passages)
	if err != nil {
		return "", &Error{Op: "query", Namespace: s.namespace, Message: "answer failed", Cause: err}
	}
	return answer, nil
}

func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	s.chunks = nil
	s.mu.Unlock()
	return nil
}

// Len returns the number of indexed chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// retrieve ranks chunks by how many query terms they contain. Chunks with no
// overlap still qualify so a vague question sees some content; insertion
// order breaks ties.
func (s *MemoryStore) retrieve(prompt string) []string {
	query := tokenize(prompt)

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(s.chunks))
	for i, c := range s.chunks {
		var hits float64
		for term := range query {
			hits += float64(c.terms[term])
		}
		if c.length > 0 {
			hits /= float64(c.length)
		}
		ranked[i] = scored{idx: i, score: hits}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	k := min(s.topK, len(ranked))
	passages := make([]string, 0, k)
	for _, r := range ranked[:k] {
		passages = append(passages, s.chunks[r.idx].text)
	}
	return passages
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"are": true, "was": true, "what": true, "their": true, "they": true, "from": true,
	"any": true, "not": true, "use": true, "using": true, "only": true, "answer": true,
}

func tokenize(text string) map[string]int {
	terms := make(map[string]int)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) < 3 || stopWords[w] {
			continue
		}
		terms[w]++
	}
	return terms
}
