package parser

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"RecordSync/internal/ports"
)

const defaultExcerptRunes = 240

// FormattedText reads congress.gov "Formatted Text" pages: an HTML shell
// around a <pre> block holding the record text.
type FormattedText struct {
	excerptRunes int
}

var _ ports.TextExtractor = (*FormattedText)(nil)

// NewFormattedText builds an extractor; excerpts default to 240 runes.
func NewFormattedText() *FormattedText {
	return &FormattedText{excerptRunes: defaultExcerptRunes}
}

// Excerpt returns the leading text of the record with whitespace collapsed,
// and the rune length of the whole collapsed text. Content that is not
// HTML is treated as plain text.
func (f *FormattedText) Excerpt(content []byte) (string, int) {
	text := f.plainText(content)
	length := utf8.RuneCountInString(text)
	if length <= f.excerptRunes {
		return text, length
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:f.excerptRunes])), length
}

func (f *FormattedText) plainText(content []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return collapse(string(content))
	}

	sel := doc.Find("pre")
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}

	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
