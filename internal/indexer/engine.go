package indexer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
)

// LockFileName is created in the index directory while an Engine holds it.
const LockFileName = "write.lock"

// Engine is the on-disk index a benchmark run writes into. Added documents
// are buffered in memory and only become visible to CountAll and TermStats
// once Commit writes them out as a segment.
type Engine struct {
	memIndex  *index.MemoryIndex
	writer    *segment.Writer
	readers   []*segment.Reader
	readerMu  sync.RWMutex
	cfg       config.IndexConfig
	dir       string
	logger    *slog.Logger
	committed int64
	closed    bool
}

// IndexDir returns the directory holding the segments of cfg's core.
func IndexDir(cfg config.IndexConfig) string {
	return filepath.Join(cfg.Home, cfg.Core, "data", "index")
}

// Open creates the index directory if needed, takes the write lock and loads
// every committed segment. It fails with ErrIndexLocked if another writer
// holds the lock.
func Open(cfg config.IndexConfig) (*Engine, error) {
	dir := IndexDir(cfg)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	lock, err := os.OpenFile(filepath.Join(dir, LockFileName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, apperrors.Newf(apperrors.ErrIndexLocked, "%s is held by another writer", dir)
		}
		return nil, fmt.Errorf("creating index lock: %w", err)
	}
	fmt.Fprintln(lock, strconv.Itoa(os.Getpid()))
	lock.Close()

	e := &Engine{
		memIndex: index.NewMemoryIndex(),
		writer:   segment.NewWriter(dir),
		cfg:      cfg,
		dir:      dir,
		logger:   slog.Default().With("component", "index-engine", "core", cfg.Core),
	}
	if err := e.loadExistingSegments(); err != nil {
		e.releaseLock()
		return nil, fmt.Errorf("loading existing segments: %w", err)
	}
	e.committed = int64(e.countCommitted())
	return e, nil
}

func (e *Engine) Dir() string {
	return e.dir
}

// AddDocument buffers a document under id. The content field is indexed both
// as stemmed tokens and as candidate n-grams.
func (e *Engine) AddDocument(id string, fields map[string]string) error {
	if e.closed {
		return fmt.Errorf("index %s is closed", e.dir)
	}
	if strings.TrimSpace(id) == "" {
		return apperrors.New(apperrors.ErrInvalidDocument, "document id is empty")
	}
	content, ok := fields[index.FieldContent]
	if !ok {
		return apperrors.Newf(apperrors.ErrInvalidDocument, "document %s has no %s field", id, index.FieldContent)
	}
	tokens := map[string][]tokenizer.Token{
		index.FieldContent:   tokenizer.Tokenize(content),
		index.FieldCandidate: tokenizer.Candidates(content, e.cfg.CandidateMinTokens, e.cfg.CandidateMaxTokens),
	}
	e.memIndex.AddDocument(id, tokens)
	e.logger.Debug("document buffered",
		"doc_id", id,
		"token_count", len(tokens[index.FieldContent]),
		"candidate_count", len(tokens[index.FieldCandidate]),
		"mem_size", e.memIndex.Size(),
	)
	if e.cfg.SegmentMaxSize > 0 && e.memIndex.Size() >= e.cfg.SegmentMaxSize {
		e.logger.Info("memory index reached max size, writing segment",
			"size", e.memIndex.Size(),
			"threshold", e.cfg.SegmentMaxSize,
		)
		if err := e.flush(); err != nil {
			return fmt.Errorf("flushing memory index: %w", err)
		}
	}
	return nil
}

// Commit writes buffered documents as a new segment and refreshes the
// committed document count.
func (e *Engine) Commit() error {
	if e.closed {
		return fmt.Errorf("index %s is closed", e.dir)
	}
	if err := e.flush(); err != nil {
		return err
	}
	e.readerMu.Lock()
	e.committed = int64(e.countCommittedLocked())
	e.readerMu.Unlock()
	return nil
}

// CommittedDocs returns the document count as of the last Commit.
func (e *Engine) CommittedDocs() int64 {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	return e.committed
}

// CountAll is the match-all query: the number of distinct documents across
// every committed segment.
func (e *Engine) CountAll() (int64, error) {
	if e.closed {
		return 0, fmt.Errorf("index %s is closed", e.dir)
	}
	return int64(e.countCommitted()), nil
}

// TermStats aggregates total and document frequency for every committed term
// of field, in term order.
func (e *Engine) TermStats(field string) ([]index.TermStat, error) {
	prefix := index.FieldPrefix(field)
	readers := e.snapshotReaders()
	// a document belongs to the last segment that stores it
	owner := make(map[string]int)
	for i, reader := range readers {
		for _, id := range reader.DocIDs() {
			owner[id] = i
		}
	}
	merged := make(map[string]map[string]int)
	for i, reader := range readers {
		for _, entry := range reader.PrefixEntries(prefix) {
			postings, err := reader.Postings(entry)
			if err != nil {
				return nil, fmt.Errorf("reading postings of %q: %w", entry.Term, err)
			}
			term := strings.TrimPrefix(entry.Term, prefix)
			for _, p := range postings {
				if owner[p.DocID] != i {
					continue
				}
				docs, ok := merged[term]
				if !ok {
					docs = make(map[string]int, len(postings))
					merged[term] = docs
				}
				docs[p.DocID] = p.Frequency
			}
		}
	}
	stats := make([]index.TermStat, 0, len(merged))
	for term, docs := range merged {
		stat := index.TermStat{Term: term, DocFreq: int64(len(docs))}
		for _, freq := range docs {
			stat.TotalFreq += int64(freq)
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Term < stats[j].Term
	})
	return stats, nil
}

// Close writes any buffered documents, closes every segment and releases the
// write lock.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	if err := e.flush(); err != nil {
		e.logger.Error("final flush on close failed", "error", err)
	}
	e.readerMu.Lock()
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil {
			e.logger.Error("closing segment reader", "error", err)
		}
	}
	e.readers = nil
	e.readerMu.Unlock()
	e.closed = true
	return e.releaseLock()
}

func (e *Engine) flush() error {
	docIDs := e.memIndex.DocIDs()
	if len(docIDs) == 0 {
		return nil
	}
	segmentName, err := e.writer.Write(e.memIndex.Snapshot(), docIDs)
	if err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}
	reader, err := segment.OpenReader(filepath.Join(e.dir, segmentName))
	if err != nil {
		return fmt.Errorf("opening new segment for reading: %w", err)
	}
	e.readerMu.Lock()
	e.readers = append(e.readers, reader)
	active := len(e.readers)
	e.readerMu.Unlock()
	e.memIndex.Reset()
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
		"active_segments", active,
	)
	return nil
}

func (e *Engine) releaseLock() error {
	if err := os.Remove(filepath.Join(e.dir, LockFileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing index lock: %w", err)
	}
	return nil
}

func (e *Engine) snapshotReaders() []*segment.Reader {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	readers := make([]*segment.Reader, len(e.readers))
	copy(readers, e.readers)
	return readers
}

func (e *Engine) countCommitted() int {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	return e.countCommittedLocked()
}

func (e *Engine) countCommittedLocked() int {
	seen := make(map[string]struct{})
	for _, reader := range e.readers {
		for _, id := range reader.DocIDs() {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func (e *Engine) loadExistingSegments() error {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading data directory: %w", err)
	}
	segFiles := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), segment.Extension) {
			segFiles = append(segFiles, entry.Name())
		}
	}
	sort.Strings(segFiles)

	for _, name := range segFiles {
		reader, err := segment.OpenReader(filepath.Join(e.dir, name))
		if err != nil {
			e.logger.Error("failed to open segment, skipping",
				"segment", name,
				"error", err,
			)
			continue
		}
		e.readers = append(e.readers, reader)
		e.logger.Debug("loaded existing segment",
			"segment", name,
			"terms", reader.Terms(),
			"docs", reader.DocCount(),
		)
	}
	e.logger.Info("segment recovery complete", "segments_loaded", len(e.readers))
	return nil
}
