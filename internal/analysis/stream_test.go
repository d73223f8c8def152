package analysis_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/undercurrent/internal/analysis"
	"github.com/qepting91/undercurrent/internal/config"
	"github.com/qepting91/undercurrent/internal/domain"
)

func newConsumer(url string) *analysis.StreamConsumer {
	cfg := config.Default()
	cfg.AnalysisURL = url
	return analysis.NewStreamConsumer(cfg)
}

func sseServer(t *testing.T, serve func(w http.ResponseWriter, flush func())) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		flush := func() {
			if fl != nil {
				fl.Flush()
			}
		}
		serve(w, flush)
	}))
}

func dataset() *domain.AcquisitionResult {
	return &domain.AcquisitionResult{
		Posts:    []domain.Post{{ID: "p1", Subreddit: "golang", Title: "hello"}},
		Comments: []domain.Comment{{ID: "c1", PostID: "p1", Subreddit: "golang", Body: "hi"}},
	}
}

func TestStreamConsumer_FrameSplitAcrossChunks(t *testing.T) {
	t.Parallel()

	srv := sseServer(t, func(w http.ResponseWriter, flush func()) {
		io.WriteString(w, `data: {"stage":`)
		flush()
		time.Sleep(20 * time.Millisecond)
		io.WriteString(w, `"analyzing","message":"working","progress":0.5}`+"\n\n")
		flush()
		io.WriteString(w, `data: {"stage":"results","data":{"ok":true}}`+"\n\n")
	})
	defer srv.Close()

	var events []domain.ProgressEvent
	payload, err := newConsumer(srv.URL).Run(context.Background(), dataset(), []string{"golang"},
		func(ev domain.ProgressEvent) { events = append(events, ev) })
	require.NoError(t, err)

	require.Len(t, events, 2, "the split frame decodes exactly once")
	assert.Equal(t, domain.StageAnalyzing, events[0].Stage)
	assert.Equal(t, "working", events[0].Message)
	assert.Equal(t, 0.5, events[0].Progress)
	assert.JSONEq(t, `{"ok":true}`, string(payload))
}

func TestStreamConsumer_MalformedFramesDropped(t *testing.T) {
	t.Parallel()

	srv := sseServer(t, func(w http.ResponseWriter, flush func()) {
		io.WriteString(w, "data: {this is not json\n\n")
		io.WriteString(w, ": keepalive comment\n\n")
		io.WriteString(w, `data: {"stage":"nlp","progress":0.7}`+"\n\n")
		io.WriteString(w, `data: {"stage":"results","data":{}}`+"\n\n")
	})
	defer srv.Close()

	var stages []string
	_, err := newConsumer(srv.URL).Run(context.Background(), dataset(), []string{"golang"},
		func(ev domain.ProgressEvent) { stages = append(stages, ev.Stage) })
	require.NoError(t, err)
	assert.Equal(t, []string{domain.StageNLP, domain.StageResults}, stages)
}

func TestStreamConsumer_ErrorStageTerminal(t *testing.T) {
	t.Parallel()

	srv := sseServer(t, func(w http.ResponseWriter, flush func()) {
		io.WriteString(w, `data: {"stage":"analyzing","progress":0.4}`+"\n\n")
		io.WriteString(w, `data: {"stage":"error","message":"model exploded"}`+"\n\n")
		io.WriteString(w, `data: {"stage":"results","data":{}}`+"\n\n") // must not be reached
	})
	defer srv.Close()

	var stages []string
	_, err := newConsumer(srv.URL).Run(context.Background(), dataset(), []string{"golang"},
		func(ev domain.ProgressEvent) { stages = append(stages, ev.Stage) })

	var remote *analysis.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "model exploded", remote.Message)
	assert.Equal(t, []string{domain.StageAnalyzing, domain.StageError}, stages)
}

func TestStreamConsumer_IncompleteStream(t *testing.T) {
	t.Parallel()

	srv := sseServer(t, func(w http.ResponseWriter, flush func()) {
		io.WriteString(w, `data: {"stage":"analyzing","progress":0.4}`+"\n\n")
	})
	defer srv.Close()

	_, err := newConsumer(srv.URL).Run(context.Background(), dataset(), []string{"golang"}, nil)
	require.ErrorIs(t, err, analysis.ErrIncompleteStream)
}

func TestStreamConsumer_CancellationIsNotAStreamError(t *testing.T) {
	t.Parallel()

	got := make(chan struct{})
	srv := sseServer(t, func(w http.ResponseWriter, flush func()) {
		io.WriteString(w, `data: {"stage":"analyzing","progress":0.1}`+"\n\n")
		flush()
		<-got // hold the stream open until the client has cancelled
	})
	defer srv.Close()
	defer close(got)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := newConsumer(srv.URL).Run(ctx, dataset(), []string{"golang"},
		func(domain.ProgressEvent) { cancel() })
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, analysis.ErrIncompleteStream)
}

func TestStreamConsumer_SubmitsAcquiredDataset(t *testing.T) {
	t.Parallel()

	var submitted struct {
		Posts      []domain.Post    `json:"posts"`
		Comments   []domain.Comment `json:"comments"`
		Subreddits []string         `json:"subreddits"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &submitted))
		io.WriteString(w, `data: {"stage":"results","data":{}}`+"\n\n")
	}))
	defer srv.Close()

	_, err := newConsumer(srv.URL).Run(context.Background(), dataset(), []string{"golang", "rust"}, nil)
	require.NoError(t, err)

	require.Len(t, submitted.Posts, 1)
	assert.Equal(t, "p1", submitted.Posts[0].ID)
	require.Len(t, submitted.Comments, 1)
	assert.Equal(t, "c1", submitted.Comments[0].ID)
	assert.Equal(t, []string{"golang", "rust"}, submitted.Subreddits)
}

func TestStreamConsumer_RejectsBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newConsumer(srv.URL).Run(context.Background(), dataset(), []string{"golang"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
