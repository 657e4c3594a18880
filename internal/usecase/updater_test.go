package usecase

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RecordSync/internal/domain"
	"RecordSync/internal/infrastructure/storage"
)

var fixedNow = time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)

type harness struct {
	root     string
	archive  *storage.FileArchive
	articles *fakeArticles
	content  *fakeContent
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	return &harness{
		root:     root,
		archive:  storage.NewFileArchive(root),
		articles: newFakeArticles(),
		content:  &fakeContent{fail: map[string]error{}},
	}
}

func (h *harness) updater(threshold int) *Updater {
	return NewUpdater(UpdaterDeps{
		Articles:      h.articles,
		Content:       h.content,
		Archive:       h.archive,
		Extractor:     stubExtractor{},
		StopThreshold: threshold,
		Earliest:      epoch,
		Now:           func() time.Time { return fixedNow },
	})
}

// complete registers issue with n articles and archives all of them.
func (h *harness) complete(t *testing.T, issue domain.Issue, n int) {
	t.Helper()
	seed(t, h.archive, issue, h.articles.add(issue, n), n)
}

func (h *harness) files(t *testing.T) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(h.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(h.root, path)
			out = append(out, rel)
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func TestUpdaterStopsAfterConsecutiveCompleteIssues(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issues := []domain.Issue{
		issueOn(170, 5, day(2024, 1, 12)),
		issueOn(170, 4, day(2024, 1, 11)),
		issueOn(170, 3, day(2024, 1, 10)),
		issueOn(170, 2, day(2024, 1, 9)),
		issueOn(170, 1, day(2024, 1, 8)),
	}
	for _, issue := range issues {
		h.complete(t, issue, 2)
	}

	summary, err := h.updater(3).Run(context.Background(), issues, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.StopCaughtUp, summary.StopReason)
	assert.Equal(t, 3, summary.IssuesExamined)
	assert.Equal(t, 0, summary.NewDownloads)
	assert.Equal(t, keysOf(issues[:3]), h.articles.Calls(), "fourth issue is never evaluated")
	assert.Empty(t, h.content.URLs())
}

func TestUpdaterDownloadsOnlyMissingArticles(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issue := issueOn(170, 3, day(2024, 1, 5))
	groups := h.articles.add(issue, 5)
	seed(t, h.archive, issue, groups, 3)

	outcome, err := h.updater(3).ProcessIssue(context.Background(), issue)
	require.NoError(t, err)

	assert.Equal(t, domain.Completeness{Complete: false, Existing: 3, Total: 5}, outcome.Before)
	assert.Equal(t, domain.StateDownloading, outcome.State)
	assert.Equal(t, 2, outcome.Downloaded)
	assert.Equal(t, 0, outcome.Failed)
	assert.Equal(t, []string{
		"https://example.test/170/3/3.htm",
		"https://example.test/170/3/4.htm",
	}, h.content.URLs())
	assert.Len(t, h.articles.Calls(), 1, "listing from evaluation is reused")
	assert.Len(t, h.files(t), 10)
}

func TestUpdaterIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issue := issueOn(170, 3, day(2024, 1, 5))
	h.articles.add(issue, 3)
	issues := []domain.Issue{issue}

	first, err := h.updater(3).Run(context.Background(), issues, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, first.NewDownloads)
	filesAfterFirst := h.files(t)

	second, err := h.updater(3).Run(context.Background(), issues, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewDownloads)
	assert.Equal(t, 0, second.FailedDownloads)
	assert.Equal(t, filesAfterFirst, h.files(t))
	assert.Len(t, h.content.URLs(), 3)
	assert.Equal(t, domain.StopExhausted, second.StopReason)
}

func TestUpdaterCountsFailuresAndContinues(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issue := issueOn(170, 3, day(2024, 1, 5))
	h.articles.add(issue, 3)
	h.content.fail["https://example.test/170/3/1.htm"] = errRemote

	summary, err := h.updater(3).Run(context.Background(), []domain.Issue{issue}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.NewDownloads)
	assert.Equal(t, 1, summary.FailedDownloads)
	assert.Len(t, h.files(t), 4, "failed article leaves no files")
}

func TestUpdaterWritesSidecarMetadata(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issue := issueOn(170, 3, day(2024, 1, 5))
	h.articles.add(issue, 1)

	_, err := h.updater(3).ProcessIssue(context.Background(), issue)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(h.root, "congress_118", "2024-01-05_c118_v170_i3_Article 0.json"))
	require.NoError(t, err)

	var meta domain.ArtifactMetadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "Article 0", meta.Title)
	assert.Equal(t, "Senate Section", meta.ArticleName)
	assert.Equal(t, "2024-01-05", meta.DateIssued)
	assert.Equal(t, "S1", meta.StartPage)
	assert.Equal(t, "https://example.test/170/3/0.htm", meta.SourceURL)
	assert.True(t, fixedNow.Equal(meta.DownloadedAt))
	assert.Equal(t, "excerpt", meta.Excerpt)
	assert.Positive(t, meta.TextLength)
}

func TestUpdaterResetsCounterOnIncompleteIssue(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issues := []domain.Issue{
		issueOn(170, 6, day(2024, 1, 15)),
		issueOn(170, 5, day(2024, 1, 12)),
		issueOn(170, 4, day(2024, 1, 11)),
		issueOn(170, 3, day(2024, 1, 10)),
		issueOn(170, 2, day(2024, 1, 9)),
		issueOn(170, 1, day(2024, 1, 8)),
		issueOn(169, 200, day(2023, 12, 20)),
	}
	for i, issue := range issues {
		if i == 2 {
			h.articles.add(issue, 1)
			continue
		}
		h.complete(t, issue, 1)
	}

	summary, err := h.updater(3).Run(context.Background(), issues, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.StopCaughtUp, summary.StopReason)
	assert.Equal(t, 6, summary.IssuesExamined)
	assert.Equal(t, 1, summary.NewDownloads)
}

func TestUpdaterFullPassWithoutThreshold(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	var issues []domain.Issue
	for i := 1; i <= 5; i++ {
		issue := issueOn(170, i, day(2024, 1, i))
		h.complete(t, issue, 1)
		issues = append(issues, issue)
	}

	summary, err := h.updater(0).Run(context.Background(), issues, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.StopExhausted, summary.StopReason)
	assert.Equal(t, 5, summary.IssuesExamined)
}

func TestUpdaterProcessesNewestFirstAndFiltersByEarliestDate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	old := issueOn(159, 200, day(2013, 12, 31))
	older := issueOn(170, 1, day(2024, 1, 3))
	newer := issueOn(170, 2, day(2024, 1, 4))
	for _, issue := range []domain.Issue{old, older, newer} {
		h.articles.add(issue, 1)
	}

	var seen []domain.IssueKey
	summary, err := h.updater(3).Run(context.Background(), []domain.Issue{older, old, newer}, RunOptions{
		OnIssue: func(o domain.IssueOutcome) { seen = append(seen, o.Issue.Key()) },
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.IssuesTotal)
	assert.Equal(t, []domain.IssueKey{newer.Key(), older.Key()}, seen)
}

func TestUpdaterHonorsStopBetweenIssues(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issues := []domain.Issue{
		issueOn(170, 3, day(2024, 1, 10)),
		issueOn(170, 2, day(2024, 1, 9)),
		issueOn(170, 1, day(2024, 1, 8)),
	}
	for _, issue := range issues {
		h.articles.add(issue, 2)
	}

	stop := make(chan struct{})
	summary, err := h.updater(3).Run(context.Background(), issues, RunOptions{
		Stop:    stop,
		OnIssue: func(domain.IssueOutcome) { close(stop) },
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StopInterrupted, summary.StopReason)
	assert.Equal(t, 1, summary.IssuesExamined)
	assert.Equal(t, 2, summary.NewDownloads, "current issue is finished before stopping")
}

func TestUpdaterStopAlreadyRequested(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issue := issueOn(170, 1, day(2024, 1, 8))
	h.articles.add(issue, 1)

	stop := make(chan struct{})
	close(stop)
	summary, err := h.updater(3).Run(context.Background(), []domain.Issue{issue}, RunOptions{Stop: stop})
	require.NoError(t, err)

	assert.Equal(t, domain.StopInterrupted, summary.StopReason)
	assert.Equal(t, 0, summary.IssuesExamined)
	assert.Empty(t, h.articles.Calls())
}

func TestUpdaterAbortsOnCancellation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	issues := []domain.Issue{
		issueOn(170, 2, day(2024, 1, 9)),
		issueOn(170, 1, day(2024, 1, 8)),
	}
	for _, issue := range issues {
		h.articles.add(issue, 3)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.content.after = func(n int) {
		if n == 1 {
			cancel()
		}
	}

	summary, err := h.updater(3).Run(ctx, issues, RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, domain.StopAborted, summary.StopReason)
	assert.Equal(t, 1, summary.IssuesExamined)
	assert.Equal(t, 0, summary.NewDownloads)
	assert.Len(t, h.content.URLs(), 1)
	assert.Empty(t, h.files(t), "no partial artifacts")
}

func TestEligibleDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	in := []domain.Issue{issueOn(170, 1, day(2024, 1, 3)), issueOn(170, 2, day(2024, 1, 4))}
	out := Eligible(in, time.Time{})

	assert.Equal(t, []domain.IssueKey{{Volume: 170, Issue: 2}, {Volume: 170, Issue: 1}}, keysOf(out))
	assert.Equal(t, []domain.IssueKey{{Volume: 170, Issue: 1}, {Volume: 170, Issue: 2}}, keysOf(in))
}
