package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/qepting91/undercurrent/internal/session"
)

// resultSummary is the slice of the (otherwise opaque) analysis payload the
// dashboard actually renders.
type resultSummary struct {
	SummaryText        string `json:"summary_text"`
	SubredditSummaries []struct {
		Subreddit    string `json:"subreddit"`
		PostCount    int    `json:"post_count"`
		CommentCount int    `json:"comment_count"`
		PostStats    struct {
			PositivePct float64 `json:"positive_pct"`
			NeutralPct  float64 `json:"neutral_pct"`
			NegativePct float64 `json:"negative_pct"`
		} `json:"post_stats"`
	} `json:"subreddit_summaries"`
}

// StartServer serves charts of the latest completed analysis. A pure display
// consumer: it reads results, never drives the pipeline.
func StartServer(store *session.SnapshotStore, port string) error {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		payload, ok := store.Latest()
		if !ok {
			http.Error(w, "no completed analysis yet", http.StatusNotFound)
			return
		}
		var summary resultSummary
		if err := json.Unmarshal(payload, &summary); err != nil {
			http.Error(w, "unreadable analysis payload", http.StatusInternalServerError)
			return
		}

		// 1. Overall sentiment split
		pie := charts.NewPie()
		pie.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "Sentiment Split", Subtitle: summary.SummaryText}),
			charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		)

		var pos, neu, neg float64
		for _, s := range summary.SubredditSummaries {
			pos += s.PostStats.PositivePct
			neu += s.PostStats.NeutralPct
			neg += s.PostStats.NegativePct
		}
		pie.AddSeries("Sentiment", []opts.PieData{
			{Name: "positive", Value: pos},
			{Name: "neutral", Value: neu},
			{Name: "negative", Value: neg},
		})

		// 2. Volume per subreddit
		bar := charts.NewBar()
		bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Posts & Comments per Subreddit"}))

		var barX []string
		var postY, commentY []opts.BarData
		for _, s := range summary.SubredditSummaries {
			barX = append(barX, s.Subreddit)
			postY = append(postY, opts.BarData{Value: s.PostCount})
			commentY = append(commentY, opts.BarData{Value: s.CommentCount})
		}
		bar.SetXAxis(barX).
			AddSeries("Posts", postY).
			AddSeries("Comments", commentY)

		pie.Render(w)
		bar.Render(w)
	})

	return http.ListenAndServe(":"+port, nil)
}
