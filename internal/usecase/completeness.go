package usecase

import (
	"context"
	"log/slog"

	"RecordSync/internal/domain"
	"RecordSync/internal/logging"
	"RecordSync/internal/ports"
)

// Completeness decides whether every downloadable article of an issue is
// already archived.
type Completeness struct {
	articles ports.ArticleLister
	archive  ports.Archive
	logger   *slog.Logger
}

// Evaluation is the verdict for one issue plus the article listing it was
// based on, so the caller does not have to fetch it twice.
type Evaluation struct {
	domain.Completeness
	Groups []domain.ArticleGroup
	// Listed is false when no listing was obtained.
	Listed bool
}

// NewCompleteness constructs the evaluator.
func NewCompleteness(articles ports.ArticleLister, archive ports.Archive, logger *slog.Logger) *Completeness {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Completeness{articles: articles, archive: archive, logger: logger}
}

// Evaluate counts downloadable and archived articles of issue. An issue is
// complete only when it has at least one downloadable article and all of
// them exist. Without a congress directory nothing is fetched. Listing
// failures yield an incomplete verdict; only cancellation is returned.
func (c *Completeness) Evaluate(ctx context.Context, issue domain.Issue) (Evaluation, error) {
	present, err := c.archive.HasCongress(issue.Congress)
	if err != nil {
		c.logger.Warn("cannot inspect congress dir", "congress", issue.Congress, "err", err)
		return Evaluation{}, nil
	}
	if !present {
		return Evaluation{}, nil
	}

	groups, err := c.articles.IssueArticles(ctx, issue)
	if err != nil {
		if domain.IsCanceled(err) || ctx.Err() != nil {
			return Evaluation{}, err
		}
		c.logger.Warn("article listing failed", "issue", issue.Key().String(), "err", err)
		return Evaluation{}, nil
	}

	eval := Evaluation{Groups: groups, Listed: true}
	for _, article := range domain.Downloadables(issue, groups) {
		eval.Total++
		if c.archive.Exists(article) {
			eval.Existing++
		}
	}
	eval.Complete = eval.Total > 0 && eval.Existing == eval.Total
	return eval, nil
}
