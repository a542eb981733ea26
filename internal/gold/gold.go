// Package gold loads the gold-standard term list a run is scored against.
package gold

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
)

const bom = "\uFEFF"

// Load reads one term per line from path. Lines are trimmed and blank lines
// dropped; order and duplicates are kept. A missing file or a file without
// terms is ErrGoldStandardUnavailable.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrGoldStandardUnavailable, "opening %s: %v", path, err)
	}
	defer f.Close()

	terms, err := Read(f)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrGoldStandardUnavailable, "reading %s: %v", path, err)
	}
	if len(terms) == 0 {
		return nil, apperrors.Newf(apperrors.ErrGoldStandardUnavailable, "%s contains no terms", path)
	}
	slog.Default().Info("gold standard loaded",
		"component", "gold",
		"path", path,
		"terms", len(terms),
	)
	return terms, nil
}

// Read parses terms from r with the same line rules as Load. It does not
// reject an empty result.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	terms := make([]string, 0)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return terms, nil
}
