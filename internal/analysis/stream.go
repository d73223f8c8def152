package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/qepting91/undercurrent/internal/config"
	"github.com/qepting91/undercurrent/internal/domain"
)

// ErrIncompleteStream means the pipeline closed its stream without a
// terminal results or error event.
var ErrIncompleteStream = errors.New("analysis stream ended without a result")

// RemoteError carries the message of a terminal error-stage event.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

var frameDelim = []byte("\n\n")

// StreamConsumer submits an acquired dataset to the remote pipeline and
// relays its push-event stream. Frames arrive as `data: {json}` blocks
// separated by blank lines, split arbitrarily across reads.
type StreamConsumer struct {
	// No client timeout: the stream stays open for the whole remote run;
	// cancellation comes from the caller's context.
	httpClient *http.Client
	url        string
}

func NewStreamConsumer(cfg config.Config) *StreamConsumer {
	return &StreamConsumer{httpClient: &http.Client{}, url: cfg.AnalysisURL}
}

type submission struct {
	Posts      []domain.Post    `json:"posts"`
	Comments   []domain.Comment `json:"comments"`
	Subreddits []string         `json:"subreddits"`
}

// Run posts the dataset and consumes events until a terminal stage. Every
// decoded event is handed to observe in arrival order; undecodable frames
// are dropped. Returns the result payload of the terminal results event.
func (sc *StreamConsumer) Run(ctx context.Context, result *domain.AcquisitionResult, subreddits []string, observe func(domain.ProgressEvent)) (json.RawMessage, error) {
	body, err := json.Marshal(submission{
		Posts:      result.Posts,
		Comments:   result.Comments,
		Subreddits: subreddits,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding analysis submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("submitting to analysis pipeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("analysis pipeline status %d", resp.StatusCode)
	}

	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.Index(pending, frameDelim)
				if idx < 0 {
					break
				}
				frame := pending[:idx]
				pending = pending[idx+len(frameDelim):]

				ev, ok := decodeFrame(frame)
				if !ok {
					continue
				}
				if observe != nil {
					observe(ev)
				}
				switch ev.Stage {
				case domain.StageResults:
					return ev.Result, nil
				case domain.StageError:
					return nil, &RemoteError{Message: ev.Message}
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err == io.EOF {
				return nil, ErrIncompleteStream
			}
			return nil, fmt.Errorf("reading analysis stream: %w", err)
		}
	}
}

// decodeFrame extracts the JSON payload of one `data:` frame. Frames that
// carry no data line, or whose payload does not decode, are dropped.
func decodeFrame(frame []byte) (domain.ProgressEvent, bool) {
	var ev domain.ProgressEvent
	var payload []byte
	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			payload = append(payload, bytes.TrimSpace(rest)...)
		}
	}
	if len(payload) == 0 {
		return ev, false
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, false
	}
	if ev.Stage == "" {
		return ev, false
	}
	return ev, true
}
