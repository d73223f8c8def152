package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"

	"github.com/qepting91/undercurrent/internal/config"
	"github.com/qepting91/undercurrent/internal/domain"
)

// APIClient is the authenticated acquisition strategy. Same contract and
// pacing discipline as the public Orchestrator, but requests go through the
// OAuth API, which tolerates a tighter request interval.
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
	cfg     config.Config
	logger  *slog.Logger
}

func NewAPIClient(cfg config.Config, logger *slog.Logger) (*APIClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	creds := reddit.Credentials{
		ID:       cfg.ClientID,
		Secret:   cfg.ClientSecret,
		Username: cfg.Username,
		Password: cfg.Password,
	}
	client, err := reddit.NewClient(creds, reddit.WithUserAgent(cfg.UserAgent))
	if err != nil {
		return nil, err
	}
	return &APIClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Fetch implements domain.Source.
func (ac *APIClient) Fetch(ctx context.Context, req domain.AnalysisRequest, progress domain.ProgressFunc) (*domain.AcquisitionResult, error) {
	limit := req.PostLimit
	if limit <= 0 {
		limit = 25
	}
	depth := req.CommentDepth
	if depth <= 0 {
		depth = 1
	}

	pagesPer := (limit + 99) / 100
	commentsPer := 0
	if req.IncludeComments {
		commentsPer = limit
		if commentsPer > ac.cfg.CommentFetchCap {
			commentsPer = ac.cfg.CommentFetchCap
		}
	}
	units := &progressUnits{
		total: len(req.Subreddits) * (pagesPer + commentsPer),
		fn:    progress,
	}

	result := &domain.AcquisitionResult{}
	for _, sub := range req.Subreddits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pagesUsed := 0
		posts, err := ac.collectPosts(ctx, req, sub, limit, func(collected, target int) {
			pagesUsed++
			units.unit(fmt.Sprintf("Fetched %d/%d posts from r/%s", collected, target, sub))
		})
		if err != nil {
			return nil, err
		}
		units.skip(pagesPer - pagesUsed)
		result.Posts = append(result.Posts, posts...)

		if !req.IncludeComments {
			continue
		}
		want := commentsPer
		if want > len(posts) {
			want = len(posts)
		}
		for i := 0; i < want; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			comments, err := ac.fetchCommentTree(ctx, sub, posts[i].ID, depth)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				ac.logger.Warn("comment fetch failed", "subreddit", sub, "post", posts[i].ID, "err", err)
				comments = nil
			}
			result.Comments = append(result.Comments, comments...)
			units.unit(fmt.Sprintf("Fetched comments for %d/%d posts in r/%s", i+1, want, sub))
		}
		units.skip(commentsPer - want)
	}

	if len(result.Posts) == 0 {
		return nil, ErrNoData
	}

	units.finish(fmt.Sprintf("Fetched %d posts and %d comments from %d subreddits",
		len(result.Posts), len(result.Comments), len(req.Subreddits)))
	return result, nil
}

func (ac *APIClient) collectPosts(ctx context.Context, req domain.AnalysisRequest, sub string, limit int, onPage func(collected, target int)) ([]domain.Post, error) {
	var posts []domain.Post
	after := ""
	for len(posts) < limit {
		batch := limit - len(posts)
		if batch > 100 {
			batch = 100
		}

		if err := ac.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, next, err := ac.listPage(ctx, req, sub, after, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("authenticated api error: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			posts = append(posts, domain.Post{
				ID:           p.ID,
				Subreddit:    sub,
				Title:        p.Title,
				Selftext:     p.Body,
				Author:       p.Author,
				Score:        p.Score,
				CommentCount: p.NumberOfComments,
				CreatedUTC:   float64(p.Created.Time.Unix()),
				Permalink:    p.Permalink,
				URL:          p.URL,
			})
		}
		if onPage != nil {
			n := len(posts)
			if n > limit {
				n = limit
			}
			onPage(n, limit)
		}
		if next == "" || len(page) < batch {
			break
		}
		after = next
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (ac *APIClient) listPage(ctx context.Context, req domain.AnalysisRequest, sub, after string, limit int) ([]*reddit.Post, string, error) {
	opts := reddit.ListOptions{Limit: limit, After: after}

	var (
		page []*reddit.Post
		resp *reddit.Response
		err  error
	)
	switch req.Sort {
	case domain.SortNew:
		page, resp, err = ac.client.Subreddit.NewPosts(ctx, sub, &opts)
	case domain.SortRising:
		page, resp, err = ac.client.Subreddit.RisingPosts(ctx, sub, &opts)
	case domain.SortTop:
		page, resp, err = ac.client.Subreddit.TopPosts(ctx, sub, &reddit.ListPostOptions{
			ListOptions: opts,
			Time:        req.TimeFilter,
		})
	default:
		page, resp, err = ac.client.Subreddit.HotPosts(ctx, sub, &opts)
	}
	if err != nil {
		return nil, "", err
	}
	return page, resp.After, nil
}

func (ac *APIClient) fetchCommentTree(ctx context.Context, sub, postID string, maxDepth int) ([]domain.Comment, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	pc, _, err := ac.client.Post.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	var out []domain.Comment
	walkReplies(pc.Comments, sub, postID, maxDepth, 0, &out)
	return out, nil
}

// walkReplies applies the same emission rules as the public tree extractor.
func walkReplies(comments []*reddit.Comment, sub, postID string, maxDepth, depth int, out *[]domain.Comment) {
	if depth >= maxDepth {
		return
	}
	for _, c := range comments {
		if c == nil {
			continue
		}
		if c.Body != "" && c.Body != bodyDeleted && c.Body != bodyRemoved {
			*out = append(*out, domain.Comment{
				ID:         c.ID,
				PostID:     postID,
				Subreddit:  sub,
				Body:       c.Body,
				Author:     c.Author,
				Score:      c.Score,
				CreatedUTC: float64(c.Created.Time.Unix()),
			})
		}
		walkReplies(c.Replies.Comments, sub, postID, maxDepth, depth+1, out)
	}
}
