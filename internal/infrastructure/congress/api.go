package congress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"RecordSync/internal/config"
	"RecordSync/internal/domain"
	"RecordSync/internal/logging"
	"RecordSync/internal/ports"
)

const (
	recordPath   = "/daily-congressional-record"
	maxPageLimit = 250
)

// API maps the daily Congressional Record endpoints onto the ports the
// use cases consume.
type API struct {
	client   *Client
	baseURL  string
	pageSize int
	logger   *slog.Logger
}

var (
	_ ports.IssueLister    = (*API)(nil)
	_ ports.ArticleLister  = (*API)(nil)
	_ ports.ContentFetcher = (*API)(nil)
	_ ports.RequestCounter = (*API)(nil)
)

// NewAPI wires endpoints on top of a rate-limited client; page size is
// clamped to the API maximum of 250.
func NewAPI(client *Client, cfg config.APIConfig, log *slog.Logger) *API {
	if log == nil {
		log = logging.Discard()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > maxPageLimit {
		pageSize = maxPageLimit
	}
	return &API{
		client:   client,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		pageSize: pageSize,
		logger:   log,
	}
}

// PageSize is the listing page size in use.
func (a *API) PageSize() int {
	return a.pageSize
}

// ListIssues returns one page of issues, newest first. Records that cannot
// be decoded are skipped; a body without the listing key is an empty page.
func (a *API) ListIssues(ctx context.Context, offset int) (domain.IssuePage, error) {
	params := listParams(offset, a.pageSize)

	var payload struct {
		Records    []json.RawMessage `json:"dailyCongressionalRecord"`
		Pagination struct {
			Next string `json:"next"`
		} `json:"pagination"`
	}
	if err := a.client.GetJSON(ctx, a.baseURL+recordPath, params, &payload); err != nil {
		return domain.IssuePage{}, fmt.Errorf("list issues at offset %d: %w", offset, err)
	}

	page := domain.IssuePage{
		Issues:  make([]domain.Issue, 0, len(payload.Records)),
		HasNext: payload.Pagination.Next != "",
	}
	for _, raw := range payload.Records {
		var issue domain.Issue
		if err := json.Unmarshal(raw, &issue); err != nil {
			a.logger.Warn("skip malformed issue record", "offset", offset, "error", err)
			continue
		}
		page.Issues = append(page.Issues, issue)
	}
	return page, nil
}

// IssueArticles returns the article groups for one issue.
func (a *API) IssueArticles(ctx context.Context, issue domain.Issue) ([]domain.ArticleGroup, error) {
	target := fmt.Sprintf("%s%s/%d/%d/articles", a.baseURL, recordPath, issue.VolumeNumber, issue.IssueNumber)
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(maxPageLimit))

	var payload struct {
		Articles []domain.ArticleGroup `json:"articles"`
	}
	if err := a.client.GetJSON(ctx, target, params, &payload); err != nil {
		return nil, fmt.Errorf("articles for %s: %w", issue.Key(), err)
	}
	return payload.Articles, nil
}

// FetchContent downloads one formatted text document.
func (a *API) FetchContent(ctx context.Context, contentURL string) ([]byte, error) {
	body, err := a.client.Download(ctx, contentURL)
	if err != nil {
		return nil, fmt.Errorf("download content: %w", err)
	}
	return body, nil
}

// Stats exposes the underlying client counters.
func (a *API) Stats() Stats {
	return a.client.Stats()
}

// Requests is the number of HTTP requests sent so far, retries included.
func (a *API) Requests() int {
	return a.client.Stats().Requests
}

// CurrentKey is the 1-based index of the key in use.
func (a *API) CurrentKey() int {
	return a.client.Stats().CurrentKey
}

func listParams(offset, limit int) url.Values {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("sort", "issueDate desc")
	return params
}
