package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/qepting91/undercurrent/internal/domain"
)

// Bodies the upstream substitutes for moderated content.
const (
	bodyDeleted = "[deleted]"
	bodyRemoved = "[removed]"
)

// commentListing is one level of the nested reply structure. Replies is kept
// raw because the upstream encodes "no replies" as an empty string instead
// of an object.
type commentListing struct {
	Data struct {
		Children []commentNode `json:"children"`
	} `json:"data"`
}

type commentNode struct {
	Kind string `json:"kind"`
	Data struct {
		ID         string          `json:"id"`
		Body       string          `json:"body"`
		Author     string          `json:"author"`
		Score      int             `json:"score"`
		CreatedUTC float64         `json:"created_utc"`
		Replies    json.RawMessage `json:"replies"`
	} `json:"data"`
}

// ExtractComments flattens a reply tree depth-first. Nodes at depth >=
// maxDepth are cut off along with their subtrees. Deleted/removed/empty
// bodies are not emitted, but their replies are still walked. Non-comment
// kinds ("more" placeholders) are skipped entirely.
func ExtractComments(node commentListing, postID, subreddit string, maxDepth int) []domain.Comment {
	var out []domain.Comment
	extract(node, postID, subreddit, maxDepth, 0, &out)
	return out
}

func extract(node commentListing, postID, subreddit string, maxDepth, depth int, out *[]domain.Comment) {
	if depth >= maxDepth {
		return
	}
	for _, child := range node.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		d := child.Data
		if d.Body != "" && d.Body != bodyDeleted && d.Body != bodyRemoved {
			*out = append(*out, domain.Comment{
				ID:         d.ID,
				PostID:     postID,
				Subreddit:  subreddit,
				Body:       d.Body,
				Author:     d.Author,
				Score:      d.Score,
				CreatedUTC: d.CreatedUTC,
			})
		}
		if replies, ok := decodeReplies(d.Replies); ok {
			extract(replies, postID, subreddit, maxDepth, depth+1, out)
		}
	}
}

func decodeReplies(raw json.RawMessage) (commentListing, bool) {
	var replies commentListing
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return replies, false
	}
	if err := json.Unmarshal(trimmed, &replies); err != nil {
		return replies, false
	}
	return replies, true
}

// CommentTreeFetcher retrieves and flattens one post's reply tree.
type CommentTreeFetcher struct {
	fetcher *Fetcher
	limiter *rate.Limiter
	baseURL string
}

func NewCommentTreeFetcher(fetcher *Fetcher, limiter *rate.Limiter, baseURL string) *CommentTreeFetcher {
	return &CommentTreeFetcher{fetcher: fetcher, limiter: limiter, baseURL: baseURL}
}

// FetchTree returns the post's comments down to maxDepth. The comment
// endpoint answers with a two-element array: [post listing, comment listing].
func (cf *CommentTreeFetcher) FetchTree(ctx context.Context, subreddit, postID string, maxDepth int) ([]domain.Comment, error) {
	if err := cf.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/r/%s/comments/%s.json?limit=100&depth=%d&raw_json=1", cf.baseURL, subreddit, postID, maxDepth)
	var payload []json.RawMessage
	if err := cf.fetcher.GetJSON(ctx, url, &payload); err != nil {
		return nil, err
	}
	if len(payload) < 2 {
		return nil, nil
	}

	var node commentListing
	if err := json.Unmarshal(payload[1], &node); err != nil {
		return nil, fmt.Errorf("decoding comment listing for %s: %w", postID, err)
	}
	return ExtractComments(node, postID, subreddit, maxDepth), nil
}
