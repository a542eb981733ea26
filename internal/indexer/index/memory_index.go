package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer/tokenizer"
)

type MemoryIndex struct {
	mu    sync.RWMutex
	index map[string]map[string]*Posting
	docs  map[string][]string
	size  int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]map[string]*Posting),
		docs:  make(map[string][]string),
	}
}

// AddDocument indexes the tokens of every field under docID. Adding a docID
// that is already buffered replaces the earlier version.
func (m *MemoryIndex) AddDocument(docID string, fields map[string][]tokenizer.Token) {
	termData := make(map[string]*Posting)
	for field, tokens := range fields {
		for _, token := range tokens {
			key := Key(field, token.Term)
			p, exists := termData[key]
			if !exists {
				p = &Posting{
					DocID:     docID,
					Frequency: 0,
					Positions: make([]int, 0, 4),
				}
				termData[key] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[docID]; exists {
		m.removeLocked(docID)
	}
	keys := make([]string, 0, len(termData))
	for key, posting := range termData {
		if _, exists := m.index[key]; !exists {
			m.index[key] = make(map[string]*Posting)
		}
		m.index[key][docID] = posting
		m.size += int64(len(key) + len(docID) + len(posting.Positions)*8 + 64)
		keys = append(keys, key)
	}
	m.docs[docID] = keys
}

func (m *MemoryIndex) removeLocked(docID string) {
	for _, key := range m.docs[docID] {
		docs := m.index[key]
		if p, ok := docs[docID]; ok {
			m.size -= int64(len(key) + len(docID) + len(p.Positions)*8 + 64)
			delete(docs, docID)
		}
		if len(docs) == 0 {
			delete(m.index, key)
		}
	}
	delete(m.docs, docID)
}

// FieldEntries returns the buffered entries of one field, sorted by term,
// with the field prefix stripped from each term.
func (m *MemoryIndex) FieldEntries(field string) []TermEntry {
	prefix := FieldPrefix(field)
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0)
	for key, docs := range m.index {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entries = append(entries, TermEntry{
			Term:     strings.TrimPrefix(key, prefix),
			Postings: sortedPostings(docs),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: sortedPostings(docs),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// DocIDs returns the buffered document ids in sorted order.
func (m *MemoryIndex) DocIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]*Posting)
	m.docs = make(map[string][]string)
	m.size = 0
}

func sortedPostings(docs map[string]*Posting) PostingList {
	postings := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		postings = append(postings, *posting)
	}
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].DocID < postings[j].DocID
	})
	return postings
}
