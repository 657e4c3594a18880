package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FormattedTextType is the only text variant the archive stores.
const FormattedTextType = "Formatted Text"

// IssueKey identifies an issue inside the catalog.
type IssueKey struct {
	Volume int
	Issue  int
}

func (k IssueKey) String() string {
	return fmt.Sprintf("v%d/i%d", k.Volume, k.Issue)
}

// Issue is one dated Congressional Record publication.
type Issue struct {
	Congress      int       `json:"congress"`
	VolumeNumber  int       `json:"volumeNumber"`
	IssueNumber   int       `json:"issueNumber"`
	IssueDate     time.Time `json:"issueDate"`
	SessionNumber int       `json:"sessionNumber,omitempty"`
	UpdateDate    string    `json:"updateDate,omitempty"`
	URL           string    `json:"url,omitempty"`
}

// Key returns the catalog identity of the issue.
func (i Issue) Key() IssueKey {
	return IssueKey{Volume: i.VolumeNumber, Issue: i.IssueNumber}
}

// Day renders the issue date the way archive filenames use it.
func (i Issue) Day() string {
	if i.IssueDate.IsZero() {
		return "unknown_date"
	}
	return i.IssueDate.Format("2006-01-02")
}

// UnmarshalJSON accepts numbers encoded either as JSON numbers or strings;
// the API sends issueNumber as a string.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Congress      flexInt `json:"congress"`
		VolumeNumber  flexInt `json:"volumeNumber"`
		IssueNumber   flexInt `json:"issueNumber"`
		IssueDate     string  `json:"issueDate"`
		SessionNumber flexInt `json:"sessionNumber"`
		UpdateDate    string  `json:"updateDate"`
		URL           string  `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	date, err := ParseIssueDate(raw.IssueDate)
	if err != nil {
		return err
	}

	*i = Issue{
		Congress:      int(raw.Congress),
		VolumeNumber:  int(raw.VolumeNumber),
		IssueNumber:   int(raw.IssueNumber),
		IssueDate:     date,
		SessionNumber: int(raw.SessionNumber),
		UpdateDate:    raw.UpdateDate,
		URL:           raw.URL,
	}
	return nil
}

// ParseIssueDate understands RFC 3339 timestamps and bare dates.
func ParseIssueDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("issue date is empty")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse issue date %q: %w", value, err)
	}
	return t, nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("not an integer: %q", s)
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// PageRef is a page label such as "H4571"; numeric labels are kept as text.
type PageRef string

func (p *PageRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PageRef(s)
		return nil
	}
	*p = PageRef(data)
	return nil
}

// TextVariant is one rendition of a section article.
type TextVariant struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// SectionArticle is a titled, paginated unit inside an article group.
type SectionArticle struct {
	Title     string        `json:"title"`
	StartPage PageRef       `json:"startPage"`
	EndPage   PageRef       `json:"endPage"`
	Text      []TextVariant `json:"text"`
}

// FormattedTextURL returns the "Formatted Text" URL, or "" when the article
// has none and therefore cannot be downloaded.
func (s SectionArticle) FormattedTextURL() string {
	for _, v := range s.Text {
		if v.Type == FormattedTextType {
			return v.URL
		}
	}
	return ""
}

// ArticleGroup is the remote grouping of section articles for one issue.
type ArticleGroup struct {
	Name            string           `json:"name"`
	SectionArticles []SectionArticle `json:"sectionArticles"`
}

// Downloadable is a section article that has a formatted text variant,
// resolved against its issue.
type Downloadable struct {
	Issue     Issue
	GroupName string
	Title     string
	StartPage string
	EndPage   string
	SourceURL string
}

// Downloadables flattens article groups into the articles that can be
// fetched, in listing order. Untitled articles get a positional title.
func Downloadables(issue Issue, groups []ArticleGroup) []Downloadable {
	var out []Downloadable
	for _, group := range groups {
		for i, section := range group.SectionArticles {
			url := section.FormattedTextURL()
			if url == "" {
				continue
			}
			title := section.Title
			if title == "" {
				title = fmt.Sprintf("Section_%d", i)
			}
			out = append(out, Downloadable{
				Issue:     issue,
				GroupName: group.Name,
				Title:     title,
				StartPage: string(section.StartPage),
				EndPage:   string(section.EndPage),
				SourceURL: url,
			})
		}
	}
	return out
}

// ArtifactMetadata is the sidecar record stored next to downloaded content.
type ArtifactMetadata struct {
	Title        string    `json:"title"`
	Congress     int       `json:"congress"`
	VolumeNumber int       `json:"volume_number"`
	IssueNumber  int       `json:"issue_number"`
	DateIssued   string    `json:"date_issued"`
	ArticleName  string    `json:"article_name"`
	StartPage    string    `json:"start_page"`
	EndPage      string    `json:"end_page"`
	SourceURL    string    `json:"source_url"`
	DownloadedAt time.Time `json:"downloaded_at"`
	Excerpt      string    `json:"excerpt,omitempty"`
	TextLength   int       `json:"text_length"`
}

// NewArtifactMetadata fills the sidecar fields derived from the article.
func NewArtifactMetadata(d Downloadable, downloadedAt time.Time) ArtifactMetadata {
	return ArtifactMetadata{
		Title:        d.Title,
		Congress:     d.Issue.Congress,
		VolumeNumber: d.Issue.VolumeNumber,
		IssueNumber:  d.Issue.IssueNumber,
		DateIssued:   d.Issue.Day(),
		ArticleName:  d.GroupName,
		StartPage:    d.StartPage,
		EndPage:      d.EndPage,
		SourceURL:    d.SourceURL,
		DownloadedAt: downloadedAt,
	}
}

// IssuePage is one page of the remote issue listing.
type IssuePage struct {
	Issues  []Issue
	HasNext bool
}
