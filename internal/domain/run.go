package domain

import (
	"fmt"
	"strings"
	"time"
)

// IssueState enumerates the controller milestones for one issue.
type IssueState string

const (
	StateScanning    IssueState = "scanning"
	StateEvaluating  IssueState = "evaluating"
	StateSkipping    IssueState = "skipping_complete"
	StateDownloading IssueState = "downloading"
	StateStopped     IssueState = "stopped"
)

// StopReason explains why an update pass ended.
type StopReason string

const (
	StopCaughtUp    StopReason = "caught_up"
	StopExhausted   StopReason = "exhausted"
	StopInterrupted StopReason = "interrupted"
	StopAborted     StopReason = "aborted"
)

// Completeness is how much of an issue already sits in the archive.
type Completeness struct {
	Complete bool
	Existing int
	Total    int
}

// IssueOutcome is the per-issue result of an update pass.
type IssueOutcome struct {
	Issue      Issue
	State      IssueState
	Before     Completeness
	Downloaded int
	Failed     int
	Stop       bool
}

// RunSummary aggregates one update pass.
type RunSummary struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	IssuesTotal     int
	IssuesExamined  int
	NewDownloads    int
	FailedDownloads int
	Requests        int
	CatalogAdded    int
	StopReason      StopReason
}

// Report renders the summary as plain text lines.
func (s RunSummary) Report() string {
	var b strings.Builder
	b.WriteString("Congressional Record update\n")
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "Issues examined: %d of %d\n", s.IssuesExamined, s.IssuesTotal)
	fmt.Fprintf(&b, "New catalog issues: %d\n", s.CatalogAdded)
	fmt.Fprintf(&b, "Downloaded: %d\n", s.NewDownloads)
	fmt.Fprintf(&b, "Failed: %d\n", s.FailedDownloads)
	fmt.Fprintf(&b, "API requests: %d\n", s.Requests)
	fmt.Fprintf(&b, "Stop reason: %s\n", s.StopReason)
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	}
	return b.String()
}
