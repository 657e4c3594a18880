package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"RecordSync/internal/domain"
	"RecordSync/internal/logging"
	"RecordSync/internal/ports"
)

// CatalogDeps wires the catalog synchronizer.
type CatalogDeps struct {
	Lister ports.IssueLister
	Store  ports.CatalogStore
	// Epoch is the cutoff used when the catalog is empty.
	Epoch  time.Time
	Logger *slog.Logger
}

// CatalogSync brings the local issue catalog up to date with the remote
// listing, fetching only issues at or after the newest one already known.
type CatalogSync struct {
	lister ports.IssueLister
	store  ports.CatalogStore
	epoch  time.Time
	logger *slog.Logger
}

// SyncResult reports one synchronization.
type SyncResult struct {
	Catalog []domain.Issue
	Cutoff  time.Time
	Fetched int
	Added   int
}

// NewCatalogSync constructs the synchronizer.
func NewCatalogSync(deps CatalogDeps) *CatalogSync {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &CatalogSync{
		lister: deps.Lister,
		store:  deps.Store,
		epoch:  deps.Epoch,
		logger: logger,
	}
}

// Synchronize loads the catalog, fetches newer issues and persists the
// merged result. A missing or unreadable catalog starts empty. Remote
// failures end the fetch early and keep what was gathered; only a canceled
// context or a failed save is returned as an error.
func (s *CatalogSync) Synchronize(ctx context.Context) (SyncResult, error) {
	existing, err := s.store.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return SyncResult{}, ctx.Err()
		}
		s.logger.Warn("catalog unavailable, starting empty", "err", err)
		existing = nil
	}
	existing, _ = MergeCatalog(nil, existing)

	cutoff := s.epoch
	if len(existing) > 0 {
		cutoff = existing[0].IssueDate
	}
	s.logger.Info("syncing catalog", "known", len(existing), "cutoff", cutoff.Format(time.DateOnly))

	fetched, err := s.fetchSince(ctx, cutoff)
	if err != nil {
		return SyncResult{Catalog: existing, Cutoff: cutoff}, err
	}

	result := SyncResult{Catalog: existing, Cutoff: cutoff, Fetched: len(fetched)}
	if len(fetched) == 0 {
		s.logger.Info("no new issues found")
		return result, nil
	}

	merged, added := MergeCatalog(existing, fetched)
	if err := s.store.Save(ctx, merged); err != nil {
		return result, fmt.Errorf("save catalog: %w", err)
	}

	result.Catalog = merged
	result.Added = added
	if added == 0 {
		s.logger.Info("catalog already current", "fetched", len(fetched))
	} else {
		s.logger.Info("catalog updated", "added", added, "total", len(merged))
	}
	return result, nil
}

// fetchSince pages newest first and stops at the first issue dated strictly
// before cutoff. That issue and everything after it are dropped.
func (s *CatalogSync) fetchSince(ctx context.Context, cutoff time.Time) ([]domain.Issue, error) {
	var out []domain.Issue
	offset := 0
	for {
		page, err := s.lister.ListIssues(ctx, offset)
		if err != nil {
			if domain.IsCanceled(err) || ctx.Err() != nil {
				return out, fmt.Errorf("fetch issues: %w", err)
			}
			s.logger.Warn("issue listing failed, keeping what was fetched", "offset", offset, "err", err)
			return out, nil
		}
		if len(page.Issues) == 0 {
			return out, nil
		}

		for _, issue := range page.Issues {
			if issue.IssueDate.Before(cutoff) {
				s.logger.Debug("reached cutoff", "issue", issue.Key().String(), "date", issue.Day())
				return out, nil
			}
			out = append(out, issue)
		}
		s.logger.Debug("fetched issue page", "offset", offset, "count", len(page.Issues), "total", len(out))

		if !page.HasNext {
			return out, nil
		}
		offset += s.lister.PageSize()
	}
}

// MergeCatalog appends the incoming issues whose (volume, issue) key is not
// yet present, then sorts newest first. The first occurrence of a key wins.
// It returns the merged catalog and the number of issues added.
func MergeCatalog(existing, incoming []domain.Issue) ([]domain.Issue, int) {
	seen := make(map[domain.IssueKey]struct{}, len(existing)+len(incoming))
	merged := make([]domain.Issue, 0, len(existing)+len(incoming))
	for _, issue := range existing {
		if _, ok := seen[issue.Key()]; ok {
			continue
		}
		seen[issue.Key()] = struct{}{}
		merged = append(merged, issue)
	}

	added := 0
	for _, issue := range incoming {
		if _, ok := seen[issue.Key()]; ok {
			continue
		}
		seen[issue.Key()] = struct{}{}
		merged = append(merged, issue)
		added++
	}

	SortNewestFirst(merged)
	return merged, added
}

// SortNewestFirst orders issues by descending issue date. Equal dates keep
// their relative order.
func SortNewestFirst(issues []domain.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].IssueDate.After(issues[j].IssueDate)
	})
}
