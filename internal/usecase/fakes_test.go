package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RecordSync/internal/domain"
	"RecordSync/internal/infrastructure/storage"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 5, 0, 0, 0, time.UTC)
}

func issueOn(volume, number int, date time.Time) domain.Issue {
	return domain.Issue{Congress: 118, VolumeNumber: volume, IssueNumber: number, IssueDate: date}
}

// groupsWith builds one article group holding n downloadable sections and
// one section without formatted text.
func groupsWith(issue domain.Issue, n int) []domain.ArticleGroup {
	group := domain.ArticleGroup{Name: "Senate Section"}
	for i := 0; i < n; i++ {
		group.SectionArticles = append(group.SectionArticles, domain.SectionArticle{
			Title:     fmt.Sprintf("Article %d", i),
			StartPage: domain.PageRef(fmt.Sprintf("S%d", i+1)),
			EndPage:   domain.PageRef(fmt.Sprintf("S%d", i+1)),
			Text: []domain.TextVariant{
				{Type: "PDF", URL: fmt.Sprintf("https://example.test/%d/%d/%d.pdf", issue.VolumeNumber, issue.IssueNumber, i)},
				{Type: domain.FormattedTextType, URL: fmt.Sprintf("https://example.test/%d/%d/%d.htm", issue.VolumeNumber, issue.IssueNumber, i)},
			},
		})
	}
	group.SectionArticles = append(group.SectionArticles, domain.SectionArticle{Title: "PDF only"})
	return []domain.ArticleGroup{group}
}

type fakeLister struct {
	mu       sync.Mutex
	pages    []domain.IssuePage
	failAt   int
	failWith error
	offsets  []int
}

func (f *fakeLister) ListIssues(ctx context.Context, offset int) (domain.IssuePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	if err := ctx.Err(); err != nil {
		return domain.IssuePage{}, &domain.RequestError{Kind: domain.FailureCanceled, Err: err}
	}
	idx := offset / f.PageSize()
	if f.failWith != nil && idx == f.failAt {
		return domain.IssuePage{}, f.failWith
	}
	if idx >= len(f.pages) {
		return domain.IssuePage{}, nil
	}
	return f.pages[idx], nil
}

func (f *fakeLister) PageSize() int { return 250 }

type memoryStore struct {
	issues  []domain.Issue
	loadErr error
	saves   int
}

func (m *memoryStore) Load(ctx context.Context) ([]domain.Issue, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]domain.Issue(nil), m.issues...), nil
}

func (m *memoryStore) Save(ctx context.Context, issues []domain.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.saves++
	m.issues = append([]domain.Issue(nil), issues...)
	return nil
}

type fakeArticles struct {
	mu     sync.Mutex
	groups map[domain.IssueKey][]domain.ArticleGroup
	errs   map[domain.IssueKey]error
	calls  []domain.IssueKey
}

func newFakeArticles() *fakeArticles {
	return &fakeArticles{
		groups: map[domain.IssueKey][]domain.ArticleGroup{},
		errs:   map[domain.IssueKey]error{},
	}
}

func (f *fakeArticles) add(issue domain.Issue, n int) []domain.ArticleGroup {
	groups := groupsWith(issue, n)
	f.groups[issue.Key()] = groups
	return groups
}

func (f *fakeArticles) IssueArticles(ctx context.Context, issue domain.Issue) ([]domain.ArticleGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, issue.Key())
	if err := f.errs[issue.Key()]; err != nil {
		return nil, err
	}
	return f.groups[issue.Key()], nil
}

func (f *fakeArticles) Calls() []domain.IssueKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.IssueKey(nil), f.calls...)
}

type fakeContent struct {
	mu    sync.Mutex
	fail  map[string]error
	urls  []string
	after func(n int)
}

func (f *fakeContent) FetchContent(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	n := len(f.urls)
	err := f.fail[url]
	after := f.after
	f.mu.Unlock()

	if after != nil {
		after(n)
	}
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, &domain.RequestError{Kind: domain.FailureCanceled, URL: url, Err: ctx.Err()}
	}
	return []byte("<html><body><pre>text of " + url + "</pre></body></html>"), nil
}

func (f *fakeContent) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

type stubExtractor struct{}

func (stubExtractor) Excerpt(content []byte) (string, int) {
	return "excerpt", len(content)
}

type recordingNotifier struct {
	summaries []domain.RunSummary
	err       error
}

func (r *recordingNotifier) PublishSummary(ctx context.Context, summary domain.RunSummary) error {
	r.summaries = append(r.summaries, summary)
	return r.err
}

type fixedCounter struct{ requests, key int }

func (c fixedCounter) Requests() int   { return c.requests }
func (c fixedCounter) CurrentKey() int { return c.key }

// seed stores the first n downloadable articles of issue in the archive.
func seed(t *testing.T, archive *storage.FileArchive, issue domain.Issue, groups []domain.ArticleGroup, n int) {
	t.Helper()
	require.NoError(t, archive.EnsureCongress(issue.Congress))
	for i, article := range domain.Downloadables(issue, groups) {
		if i == n {
			return
		}
		_, err := archive.Save(article, []byte("seeded"), domain.NewArtifactMetadata(article, time.Now().UTC()))
		require.NoError(t, err)
	}
}

var errRemote = &domain.RequestError{Kind: domain.FailureStatus, URL: "https://example.test", StatusCode: 500}
