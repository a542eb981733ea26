// Package corpus streams a zipped corpus as plain-text documents. Each
// non-directory archive entry is handed to a Parser; entries that cannot be
// read or parsed are logged and skipped.
package corpus

import (
	"archive/zip"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"

	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
)

type Loader struct {
	parser Parser
	logger *slog.Logger
}

func NewLoader(parser Parser) *Loader {
	return &Loader{
		parser: parser,
		logger: slog.Default().With("component", "corpus-loader"),
	}
}

// Corpus is an opened archive. Documents may be ranged over any number of
// times; each pass reopens the archive.
type Corpus struct {
	path    string
	entries int
	parser  Parser
	logger  *slog.Logger
	skipped atomic.Int64
	yielded atomic.Int64
}

// Open verifies that path is a readable zip archive. It fails with
// ErrCorpusUnavailable otherwise.
func (l *Loader) Open(path string) (*Corpus, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusUnavailable, "opening %s: %v", path, err)
	}
	entries := 0
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			entries++
		}
	}
	zr.Close()
	l.logger.Info("corpus archive opened", "path", path, "entries", entries)
	return &Corpus{
		path:    path,
		entries: entries,
		parser:  l.parser,
		logger:  l.logger,
	}, nil
}

func (c *Corpus) Path() string {
	return c.path
}

// Entries is the number of non-directory entries in the archive.
func (c *Corpus) Entries() int {
	return c.entries
}

// Skipped is the number of entries skipped during the most recent pass.
func (c *Corpus) Skipped() int {
	return int(c.skipped.Load())
}

// Yielded is the number of documents produced during the most recent pass.
func (c *Corpus) Yielded() int {
	return int(c.yielded.Load())
}

// Documents returns a lazy sequence of the archive's documents in archive
// order. The archive stays open only while the sequence is being ranged over.
func (c *Corpus) Documents() iter.Seq[Document] {
	return func(yield func(Document) bool) {
		c.skipped.Store(0)
		c.yielded.Store(0)
		zr, err := zip.OpenReader(c.path)
		if err != nil {
			c.logger.Error("reopening corpus archive failed", "path", c.path, "error", err)
			return
		}
		defer zr.Close()

		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			doc, err := c.parseEntry(f)
			if err != nil {
				c.skipped.Add(1)
				c.logger.Warn("skipping unreadable corpus entry",
					"entry", f.Name,
					"error", err,
				)
				continue
			}
			c.yielded.Add(1)
			if !yield(doc) {
				return
			}
		}
		c.logger.Info("corpus pass complete",
			"documents", c.yielded.Load(),
			"skipped", c.skipped.Load(),
		)
	}
}

func (c *Corpus) parseEntry(f *zip.File) (Document, error) {
	rc, err := f.Open()
	if err != nil {
		return Document{}, fmt.Errorf("opening entry: %w", err)
	}
	defer rc.Close()
	return c.parser.Parse(f.Name, rc)
}
