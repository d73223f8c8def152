package collector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/qepting91/undercurrent/internal/domain"
)

// listing mirrors the upstream paginated JSON shape.
type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
}

func (d postData) toPost(subreddit string) domain.Post {
	return domain.Post{
		ID:           d.ID,
		Subreddit:    subreddit,
		Title:        d.Title,
		Selftext:     d.Selftext,
		Author:       d.Author,
		Score:        d.Score,
		CommentCount: d.NumComments,
		CreatedUTC:   d.CreatedUTC,
		Permalink:    d.Permalink,
		URL:          d.URL,
	}
}

// PaginatedCollector walks a subreddit listing cursor-by-cursor until the
// target count is reached or the source runs dry. The shared limiter spaces
// every page after the first.
type PaginatedCollector struct {
	fetcher  *Fetcher
	limiter  *rate.Limiter
	baseURL  string
	pageSize int
}

func NewPaginatedCollector(fetcher *Fetcher, limiter *rate.Limiter, baseURL string, pageSize int) *PaginatedCollector {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &PaginatedCollector{fetcher: fetcher, limiter: limiter, baseURL: baseURL, pageSize: pageSize}
}

// CollectPosts gathers up to limit posts, calling onPage after every fetched
// page with (collected-so-far, limit). An empty first page is not an error.
func (pc *PaginatedCollector) CollectPosts(ctx context.Context, subreddit, sort, timeFilter string, limit int, onPage func(collected, target int)) ([]domain.Post, error) {
	if sort == "" {
		sort = domain.SortHot
	}

	var posts []domain.Post
	after := ""
	for len(posts) < limit {
		batch := limit - len(posts)
		if batch > pc.pageSize {
			batch = pc.pageSize
		}

		if err := pc.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var page listing
		if err := pc.fetcher.GetJSON(ctx, pc.listingURL(subreddit, sort, timeFilter, batch, after), &page); err != nil {
			return nil, err
		}

		children := page.Data.Children
		if len(children) == 0 {
			break
		}
		for _, child := range children {
			posts = append(posts, child.Data.toPost(subreddit))
		}

		if onPage != nil {
			n := len(posts)
			if n > limit {
				n = limit
			}
			onPage(n, limit)
		}

		// A missing cursor or a short page means the listing is exhausted.
		if page.Data.After == "" || len(children) < batch {
			break
		}
		after = page.Data.After
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (pc *PaginatedCollector) listingURL(subreddit, sort, timeFilter string, limit int, after string) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")
	if sort == domain.SortTop && timeFilter != "" {
		q.Set("t", timeFilter)
	}
	if after != "" {
		q.Set("after", after)
	}
	return fmt.Sprintf("%s/r/%s/%s.json?%s", pc.baseURL, subreddit, sort, q.Encode())
}
