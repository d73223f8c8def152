package collector

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/qepting91/undercurrent/internal/config"
	"github.com/qepting91/undercurrent/internal/domain"
)

// Orchestrator is the live acquisition strategy: posts then comment trees,
// subreddit by subreddit, strictly sequential, one shared limiter spacing
// every request of the run.
type Orchestrator struct {
	posts   *PaginatedCollector
	trees   *CommentTreeFetcher
	cfg     config.Config
	logger  *slog.Logger
}

func NewOrchestrator(cfg config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := NewFetcher(cfg)
	limiter := rate.NewLimiter(rate.Every(cfg.RequestDelay), 1)
	return &Orchestrator{
		posts:  NewPaginatedCollector(fetcher, limiter, cfg.BaseURL, cfg.PageSize),
		trees:  NewCommentTreeFetcher(fetcher, limiter, cfg.BaseURL),
		cfg:    cfg,
		logger: logger,
	}
}

// progressUnits tracks completed work against an up-front estimate. Reported
// progress is monotone and stays below 1 until the run finishes.
type progressUnits struct {
	total    int
	done     int
	reported float64
	fn       domain.ProgressFunc
}

func (u *progressUnits) unit(msg string) {
	u.done++
	p := float64(u.done) / float64(u.total)
	if p >= 1 {
		p = 0.99
	}
	if p > u.reported {
		u.reported = p
		if u.fn != nil {
			u.fn(p, msg)
		}
	}
}

// skip absorbs estimated units that turned out not to be needed (short
// listings, capped comment loops) without emitting progress.
func (u *progressUnits) skip(n int) {
	if n > 0 {
		u.done += n
	}
}

func (u *progressUnits) finish(msg string) {
	u.reported = 1
	if u.fn != nil {
		u.fn(1, msg)
	}
}

// Fetch implements domain.Source.
func (o *Orchestrator) Fetch(ctx context.Context, req domain.AnalysisRequest, progress domain.ProgressFunc) (*domain.AcquisitionResult, error) {
	limit := req.PostLimit
	if limit <= 0 {
		limit = 25
	}
	depth := req.CommentDepth
	if depth <= 0 {
		depth = 1
	}

	pagesPer := (limit + o.posts.pageSize - 1) / o.posts.pageSize
	commentsPer := 0
	if req.IncludeComments {
		commentsPer = limit
		if commentsPer > o.cfg.CommentFetchCap {
			commentsPer = o.cfg.CommentFetchCap
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
		posts, err := o.posts.CollectPosts(ctx, sub, req.Sort, req.TimeFilter, limit, func(collected, target int) {
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
			comments, err := o.trees.FetchTree(ctx, sub, posts[i].ID, depth)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// One bad tree does not sink the run.
				o.logger.Warn("comment fetch failed", "subreddit", sub, "post", posts[i].ID, "err", err)
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
