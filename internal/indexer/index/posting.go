package index

import "strings"

// Field names stored by the engine.
const (
	FieldContent   = "content"
	FieldCandidate = "candidate"
)

type Posting struct {
	DocID     string
	Frequency int
	Positions []int
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

// TermStat aggregates a term's postings across the whole index.
type TermStat struct {
	Term      string
	TotalFreq int64
	DocFreq   int64
}

// Key qualifies a term with the field it was indexed under.
func Key(field, term string) string {
	return field + ":" + term
}

// SplitKey is the inverse of Key.
func SplitKey(key string) (field, term string) {
	field, term, _ = strings.Cut(key, ":")
	return field, term
}

// FieldPrefix is the dictionary prefix shared by every term of field.
func FieldPrefix(field string) string {
	return field + ":"
}
