package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"RecordSync/internal/domain"
	"RecordSync/internal/logging"
	"RecordSync/internal/ports"
)

// UpdaterDeps wires the incremental download controller.
type UpdaterDeps struct {
	Articles  ports.ArticleLister
	Content   ports.ContentFetcher
	Archive   ports.Archive
	Extractor ports.TextExtractor
	// StopThreshold is the number of consecutive complete issues that ends
	// a pass. Zero disables the early stop.
	StopThreshold int
	// Earliest drops issues dated before it. Zero keeps everything.
	Earliest time.Time
	Now      func() time.Time
	Logger   *slog.Logger
}

// Updater walks issues newest first and downloads what the archive lacks.
// It stops after StopThreshold consecutive complete issues, on the
// assumption that everything older was fetched by an earlier run.
type Updater struct {
	articles    ports.ArticleLister
	content     ports.ContentFetcher
	archive     ports.Archive
	extractor   ports.TextExtractor
	evaluator   *Completeness
	threshold   int
	earliest    time.Time
	now         func() time.Time
	logger      *slog.Logger
	consecutive int
}

// RunOptions control one pass.
type RunOptions struct {
	// Stop is checked between issues; once closed the pass ends cleanly.
	Stop <-chan struct{}
	// OnIssue, when set, receives every per-issue outcome.
	OnIssue func(domain.IssueOutcome)
}

// NewUpdater constructs the controller.
func NewUpdater(deps UpdaterDeps) *Updater {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	threshold := deps.StopThreshold
	if threshold < 0 {
		threshold = 0
	}
	return &Updater{
		articles:  deps.Articles,
		content:   deps.Content,
		archive:   deps.Archive,
		extractor: deps.Extractor,
		evaluator: NewCompleteness(deps.Articles, deps.Archive, logger),
		threshold: threshold,
		earliest:  deps.Earliest,
		now:       now,
		logger:    logger,
	}
}

// Eligible returns the issues dated on or after earliest, newest first.
// The input is not modified.
func Eligible(issues []domain.Issue, earliest time.Time) []domain.Issue {
	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if !earliest.IsZero() && issue.IssueDate.Before(earliest) {
			continue
		}
		out = append(out, issue)
	}
	SortNewestFirst(out)
	return out
}

// Run performs one pass over issues. The returned error is non-nil only
// when ctx was canceled mid-pass; the summary is filled in either way.
func (u *Updater) Run(ctx context.Context, issues []domain.Issue, opts RunOptions) (domain.RunSummary, error) {
	eligible := Eligible(issues, u.earliest)
	summary := domain.RunSummary{
		StartedAt:   u.now(),
		IssuesTotal: len(eligible),
		StopReason:  domain.StopExhausted,
	}
	u.consecutive = 0

	u.logger.Info("starting update pass", "issues", len(eligible), "stop_threshold", u.threshold)

	for i, issue := range eligible {
		if stopRequested(opts.Stop) {
			u.logger.Info("stop requested, ending pass", "examined", summary.IssuesExamined)
			summary.StopReason = domain.StopInterrupted
			break
		}
		if err := ctx.Err(); err != nil {
			summary.StopReason = domain.StopAborted
			summary.FinishedAt = u.now()
			return summary, err
		}

		u.logger.Info("processing issue",
			"position", fmt.Sprintf("%d/%d", i+1, len(eligible)),
			"date", issue.Day(),
			"volume", issue.VolumeNumber,
			"issue", issue.IssueNumber,
			"congress", issue.Congress)

		outcome, err := u.ProcessIssue(ctx, issue)
		summary.IssuesExamined++
		summary.NewDownloads += outcome.Downloaded
		summary.FailedDownloads += outcome.Failed
		if opts.OnIssue != nil {
			opts.OnIssue(outcome)
		}
		if err != nil {
			summary.StopReason = domain.StopAborted
			summary.FinishedAt = u.now()
			return summary, err
		}
		if outcome.Stop {
			u.logger.Info("found consecutive complete issues, stopping", "count", u.consecutive)
			summary.StopReason = domain.StopCaughtUp
			break
		}
	}

	summary.FinishedAt = u.now()
	return summary, nil
}

// ProcessIssue evaluates one issue and downloads its missing articles. The
// consecutive-complete counter carries over between calls; Run resets it.
func (u *Updater) ProcessIssue(ctx context.Context, issue domain.Issue) (domain.IssueOutcome, error) {
	outcome := domain.IssueOutcome{Issue: issue, State: domain.StateEvaluating}

	eval, err := u.evaluator.Evaluate(ctx, issue)
	if err != nil {
		return outcome, err
	}
	outcome.Before = eval.Completeness

	if eval.Complete {
		u.consecutive++
		u.logger.Info("issue already complete", "issue", issue.Key().String(), "articles", eval.Total)
		if u.threshold > 0 && u.consecutive >= u.threshold {
			outcome.State = domain.StateStopped
			outcome.Stop = true
			return outcome, nil
		}
		outcome.State = domain.StateSkipping
		return outcome, nil
	}

	u.consecutive = 0
	outcome.State = domain.StateDownloading
	if eval.Existing > 0 {
		u.logger.Info("issue partially downloaded", "issue", issue.Key().String(),
			"existing", eval.Existing, "total", eval.Total)
	}

	if err := u.archive.EnsureCongress(issue.Congress); err != nil {
		u.logger.Error("cannot prepare congress dir", "congress", issue.Congress, "err", err)
		return outcome, nil
	}

	groups := eval.Groups
	if !eval.Listed {
		groups, err = u.articles.IssueArticles(ctx, issue)
		if err != nil {
			if domain.IsCanceled(err) || ctx.Err() != nil {
				return outcome, err
			}
			u.logger.Warn("no articles for issue", "issue", issue.Key().String(), "err", err)
			return outcome, nil
		}
	}

	for _, article := range domain.Downloadables(issue, groups) {
		if u.archive.Exists(article) {
			continue
		}
		if err := u.download(ctx, article); err != nil {
			if domain.IsCanceled(err) || ctx.Err() != nil {
				return outcome, err
			}
			outcome.Failed++
			u.logger.Warn("download failed", "issue", issue.Key().String(), "title", article.Title, "err", err)
			continue
		}
		outcome.Downloaded++
	}

	if outcome.Downloaded > 0 || outcome.Failed > 0 {
		u.logger.Info("issue done", "issue", issue.Key().String(),
			"downloaded", outcome.Downloaded, "failed", outcome.Failed)
	}
	return outcome, nil
}

func (u *Updater) download(ctx context.Context, article domain.Downloadable) error {
	content, err := u.content.FetchContent(ctx, article.SourceURL)
	if err != nil {
		return err
	}

	meta := domain.NewArtifactMetadata(article, u.now())
	if u.extractor != nil {
		meta.Excerpt, meta.TextLength = u.extractor.Excerpt(content)
	}

	path, err := u.archive.Save(article, content, meta)
	if err != nil {
		return fmt.Errorf("store %q: %w", article.Title, err)
	}
	u.logger.Debug("saved article", "path", path)
	return nil
}

func stopRequested(stop <-chan struct{}) bool {
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
