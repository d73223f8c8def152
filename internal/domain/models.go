package domain

import (
	"context"
	"encoding/json"
)

// Post is one acquired submission, unique per (Subreddit, ID) within a run.
type Post struct {
	ID           string  `json:"id"`
	Subreddit    string  `json:"subreddit"`
	Title        string  `json:"title"`
	Selftext     string  `json:"selftext"`
	Author       string  `json:"author"`
	Score        int     `json:"score"`
	CommentCount int     `json:"num_comments"`
	CreatedUTC   float64 `json:"created_utc"`
	Permalink    string  `json:"permalink"`
	URL          string  `json:"url"`
}

// Comment is one reply-tree node that survived the removal filter.
type Comment struct {
	ID         string  `json:"id"`
	PostID     string  `json:"post_id"`
	Subreddit  string  `json:"subreddit"`
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// AcquisitionResult holds everything one run collected. It belongs to the
// run that produced it; a new run starts from a fresh value.
type AcquisitionResult struct {
	Posts    []Post    `json:"posts"`
	Comments []Comment `json:"comments"`
}

// Sort orders for post listings.
const (
	SortHot    = "hot"
	SortNew    = "new"
	SortRising = "rising"
	SortTop    = "top"
)

// AnalysisRequest describes one acquisition + analysis run.
type AnalysisRequest struct {
	Subreddits      []string `json:"subreddits"`
	PostLimit       int      `json:"post_limit"`
	Sort            string   `json:"sort"`
	TimeFilter      string   `json:"time_filter"`
	IncludeComments bool     `json:"include_comments"`
	CommentDepth    int      `json:"comment_depth"`
}

// Stage names carried by pipeline progress events. The remote side may emit
// stages not listed here; consumers relay them verbatim.
const (
	StageStarted     = "started"
	StageFetching    = "fetching"
	StageAnalyzing   = "analyzing"
	StageAggregating = "aggregating"
	StageNLP         = "nlp"
	StageSummarizing = "summarizing"
	StageComplete    = "complete"
	StageResults     = "results"
	StageError       = "error"
)

// ProgressEvent is one decoded frame of the pipeline's push stream.
// Result is populated only on the "results" stage.
type ProgressEvent struct {
	Stage    string          `json:"stage"`
	Message  string          `json:"message,omitempty"`
	Progress float64         `json:"progress,omitempty"`
	Result   json.RawMessage `json:"data,omitempty"`
}

// SessionStatus is the controller's externally visible state.
type SessionStatus string

const (
	StatusIdle    SessionStatus = "idle"
	StatusLoading SessionStatus = "loading"
	StatusDone    SessionStatus = "done"
	StatusError   SessionStatus = "error"
)

// Session is a snapshot of the controller state handed to observers.
// Result is non-nil iff Status is done; Err is non-nil iff Status is error.
type Session struct {
	Status   SessionStatus
	Progress float64
	Stage    string
	Message  string
	Result   json.RawMessage
	Err      error
}

// ProgressFunc receives acquisition progress as a fraction in [0,1].
type ProgressFunc func(progress float64, message string)

// Source is the acquisition strategy: it collects posts (and optionally
// comments) for every requested subreddit, reporting unified progress.
type Source interface {
	Fetch(ctx context.Context, req AnalysisRequest, progress ProgressFunc) (*AcquisitionResult, error)
}
