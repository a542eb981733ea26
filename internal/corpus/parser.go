package corpus

import (
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
)

// Document is one corpus entry reduced to plain text.
type Document struct {
	ID      string
	Content string
}

// Parser converts the raw bytes of one archive entry into a Document.
type Parser interface {
	Parse(name string, r io.Reader) (Document, error)
}

// NewParser returns the parser registered for format.
func NewParser(format string) (Parser, error) {
	switch format {
	case "acl-xml":
		return ACLXMLParser{}, nil
	case "text":
		return TextParser{}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown corpus format %q", format)
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// TextParser reads a UTF-8 plain-text entry; the id is the entry's base name
// without extension.
type TextParser struct{}

func (TextParser) Parse(name string, r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", name, err)
	}
	if !utf8.Valid(data) {
		return Document{}, apperrors.Newf(apperrors.ErrUndecodableEntry, "%s is not valid UTF-8", name)
	}
	return Document{ID: baseID(name), Content: string(data)}, nil
}

// ACLXMLParser reads an ACL RD-TEC cleansed-text XML paper:
//
//	<Paper acl-id="P06-1001">
//	  <Title>...</Title>
//	  <Section><SectionTitle>...</SectionTitle><Paragraph>...</Paragraph></Section>
//	</Paper>
//
// Titles, section titles and paragraphs become paragraphs of the content.
type ACLXMLParser struct{}

func (ACLXMLParser) Parse(name string, r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", name, err)
	}
	if !utf8.Valid(data) {
		return Document{}, apperrors.Newf(apperrors.ErrUndecodableEntry, "%s is not valid UTF-8", name)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return Document{}, apperrors.Newf(apperrors.ErrUndecodableEntry, "parsing %s: %v", name, err)
	}
	paper := doc.Find("paper").First()
	if paper.Length() == 0 {
		return Document{}, apperrors.Newf(apperrors.ErrUndecodableEntry, "%s has no <Paper> element", name)
	}

	id, _ := paper.Attr("acl-id")
	id = strings.TrimSpace(id)
	if id == "" {
		id = baseID(name)
	}

	parts := make([]string, 0)
	paper.Find("title, sectiontitle, paragraph").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(whitespace.ReplaceAllString(s.Text(), " "))
		if text != "" {
			parts = append(parts, text)
		}
	})
	return Document{ID: id, Content: strings.Join(parts, "\n")}, nil
}

func baseID(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}
