package indexer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/metrics"
)

type fakeIndex struct {
	added     []string
	failOn    map[string]bool
	commitErr error
	countErr  error
	commits   int
}

func (f *fakeIndex) AddDocument(id string, _ map[string]string) error {
	if f.failOn[id] {
		return fmt.Errorf("rejected %s", id)
	}
	f.added = append(f.added, id)
	return nil
}

func (f *fakeIndex) Commit() error {
	f.commits++
	return f.commitErr
}

func (f *fakeIndex) CountAll() (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	if f.commitErr != nil {
		return 0, nil
	}
	return int64(len(f.added)), nil
}

func docs(ds ...corpus.Document) iter.Seq[corpus.Document] {
	return slices.Values(ds)
}

func TestIndexSkipsEmptyContent(t *testing.T) {
	idx := &fakeIndex{}
	stats, err := New(idx, nil).Index(context.Background(), docs(
		corpus.Document{ID: "a", Content: "term extraction"},
		corpus.Document{ID: "b", Content: "   \n\t"},
		corpus.Document{ID: "c", Content: "noun phrase"},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, idx.added)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, 1, stats.Empty)
	assert.Equal(t, int64(2), stats.Committed)
	assert.Equal(t, 1, idx.commits)
}

func TestIndexContinuesAfterDocumentFailure(t *testing.T) {
	idx := &fakeIndex{failOn: map[string]bool{"b": true}}
	stats, err := New(idx, nil).Index(context.Background(), docs(
		corpus.Document{ID: "a", Content: "one"},
		corpus.Document{ID: "b", Content: "two"},
		corpus.Document{ID: "c", Content: "three"},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, idx.added)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, int64(2), stats.Committed)
}

func TestIndexRecordsCommitFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	idx := &fakeIndex{commitErr: errors.New("disk full")}
	stats, err := New(idx, m).Index(context.Background(), docs(corpus.Document{ID: "a", Content: "one"}))
	require.NoError(t, err)
	require.Error(t, stats.CommitErr)
	assert.Zero(t, stats.Committed)
	assert.Equal(t, 1, idx.commits)
}

func TestIndexStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	idx := &fakeIndex{}
	seq := func(yield func(corpus.Document) bool) {
		for i := 0; i < 10; i++ {
			if i == 3 {
				cancel()
			}
			if !yield(corpus.Document{ID: fmt.Sprint(i), Content: "text"}) {
				return
			}
		}
	}
	stats, err := New(idx, nil).Index(ctx, seq)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, stats.Processed)
	assert.Zero(t, idx.commits)
}

func TestIndexEmptyCorpus(t *testing.T) {
	idx := &fakeIndex{}
	stats, err := New(idx, nil).Index(context.Background(), docs())
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)
	assert.Zero(t, stats.Committed)
	assert.Equal(t, 1, idx.commits)
}

func TestValidateReturnsZeroOnError(t *testing.T) {
	ix := New(&fakeIndex{countErr: errors.New("unavailable")}, nil)
	assert.Zero(t, ix.Validate())
}

func TestIndexIntoEngine(t *testing.T) {
	e, err := OpenIndex(testIndexConfig(t))
	require.NoError(t, err)
	defer e.Close()

	var all []corpus.Document
	for i := 0; i < 250; i++ {
		all = append(all, corpus.Document{ID: fmt.Sprintf("doc-%03d", i), Content: "statistical machine translation"})
	}
	all = append(all, corpus.Document{ID: "blank", Content: ""})

	stats, err := New(e, nil).Index(context.Background(), slices.Values(all))
	require.NoError(t, err)
	assert.Equal(t, 251, stats.Processed)
	assert.Equal(t, int64(250), stats.Committed)
	assert.Equal(t, int64(250), New(e, nil).Validate())
}
