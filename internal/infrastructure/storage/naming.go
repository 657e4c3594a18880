package storage

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"RecordSync/internal/domain"
)

const (
	maxTitleRunes  = 100
	contentSuffix  = ".html"
	sidecarSuffix  = ".json"
	congressPrefix = "congress_"
)

// SafeFilename maps a title onto the filename alphabet [A-Za-z0-9-_. ].
// The title is NFC-normalized first so that visually equal titles always
// produce the same name; every other rune becomes '_'.
func SafeFilename(title string) string {
	title = norm.NFC.String(title)

	var b strings.Builder
	n := 0
	for _, r := range title {
		if n == maxTitleRunes {
			break
		}
		if isSafeRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return strings.Trim(b.String(), " ")
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ' ':
		return true
	}
	return false
}

// CongressDirName is the archive subdirectory for one congress.
func CongressDirName(congress int) string {
	return fmt.Sprintf("%s%d", congressPrefix, congress)
}

// ArtifactBaseName derives the content filename, without directory, from
// date, congress, volume, issue and sanitized title.
func ArtifactBaseName(article domain.Downloadable) string {
	issue := article.Issue
	return fmt.Sprintf("%s_c%d_v%d_i%d_%s%s",
		issue.Day(), issue.Congress, issue.VolumeNumber, issue.IssueNumber,
		SafeFilename(article.Title), contentSuffix)
}

// SidecarPath returns the metadata path belonging to a content path.
func SidecarPath(contentPath string) string {
	return strings.TrimSuffix(contentPath, contentSuffix) + sidecarSuffix
}
