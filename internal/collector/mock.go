package collector

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/qepting91/undercurrent/internal/domain"
)

// MockSource returns synthetic data without touching the network. Useful for
// demos and for exercising the session pipeline offline.
type MockSource struct{}

func NewMockSource() *MockSource {
	return &MockSource{}
}

// Fetch implements domain.Source.
func (ms *MockSource) Fetch(ctx context.Context, req domain.AnalysisRequest, progress domain.ProgressFunc) (*domain.AcquisitionResult, error) {
	limit := req.PostLimit
	if limit <= 0 {
		limit = 25
	}

	result := &domain.AcquisitionResult{}
	for n, sub := range req.Subreddits {
		// Simulated latency keeps the progress stream observable.
		if err := sleep(ctx, 200*time.Millisecond); err != nil {
			return nil, err
		}
		for i := 0; i < limit; i++ {
			result.Posts = append(result.Posts, domain.Post{
				ID:           fmt.Sprintf("mock_%s_%d", sub, i),
				Subreddit:    sub,
				Title:        fmt.Sprintf("[%s] Simulated discussion thread #%d", sub, i),
				Selftext:     "Synthetic post body for offline runs.",
				Author:       "simulated_user",
				Score:        rand.Intn(500),
				CommentCount: rand.Intn(50),
				CreatedUTC:   float64(time.Now().Unix()),
				Permalink:    fmt.Sprintf("/r/%s/comments/mock_%d", sub, i),
				URL:          "http://localhost/mock-url",
			})
			if req.IncludeComments {
				result.Comments = append(result.Comments, domain.Comment{
					ID:         fmt.Sprintf("mockc_%s_%d", sub, i),
					PostID:     fmt.Sprintf("mock_%s_%d", sub, i),
					Subreddit:  sub,
					Body:       "Synthetic reply.",
					Author:     "simulated_user",
					Score:      rand.Intn(50),
					CreatedUTC: float64(time.Now().Unix()),
				})
			}
		}
		if progress != nil {
			progress(float64(n+1)/float64(len(req.Subreddits)), fmt.Sprintf("Generated %d posts for r/%s", limit, sub))
		}
	}
	return result, nil
}
