package ports

import (
	"context"
	"time"

	"RecordSync/internal/domain"
)

// IssueLister pages through the remote issue listing, newest first.
type IssueLister interface {
	ListIssues(ctx context.Context, offset int) (domain.IssuePage, error)
	PageSize() int
}

// ArticleLister fetches the article groups of one issue.
type ArticleLister interface {
	IssueArticles(ctx context.Context, issue domain.Issue) ([]domain.ArticleGroup, error)
}

// ContentFetcher downloads the raw formatted text of a section article.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) ([]byte, error)
}

// CatalogStore persists the ordered list of known issues. Save replaces the
// stored catalog as a whole.
type CatalogStore interface {
	Load(ctx context.Context) ([]domain.Issue, error)
	Save(ctx context.Context, issues []domain.Issue) error
}

// Archive is the on-disk artifact store. An artifact exists once its content
// file exists; Save never leaves a partial artifact behind.
type Archive interface {
	HasCongress(congress int) (bool, error)
	EnsureCongress(congress int) error
	Exists(article domain.Downloadable) bool
	Save(article domain.Downloadable, content []byte, meta domain.ArtifactMetadata) (string, error)
}

// TextExtractor derives a short plain-text excerpt from formatted content.
type TextExtractor interface {
	Excerpt(content []byte) (excerpt string, length int)
}

// Notifier publishes the summary of a finished run.
type Notifier interface {
	PublishSummary(ctx context.Context, summary domain.RunSummary) error
}

// Scheduler controls when update runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// RequestCounter reports remote usage for run summaries.
type RequestCounter interface {
	Requests() int
	CurrentKey() int
}
