package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbodies/catch-api/internal/catch"
	"github.com/smallbodies/catch-api/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturePublisher struct {
	mu       sync.Mutex
	messages []models.Message
}

func (p *capturePublisher) Publish(_ context.Context, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturePublisher) all() []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Message(nil), p.messages...)
}

// stubSearcher implements catch.Searcher with a pluggable Search.
type stubSearcher struct {
	search func(ctx context.Context, progress catch.Progress) error
}

func (s *stubSearcher) Search(ctx context.Context, _ uuid.UUID, _ string, _ []string, _ catch.SearchParams, _ bool, progress catch.Progress) error {
	return s.search(ctx, progress)
}

func (s *stubSearcher) IsCached(context.Context, string, string, catch.SearchParams) (bool, error) {
	return false, nil
}

func (s *stubSearcher) Caught(context.Context, uuid.UUID) ([]models.CaughtObservation, error) {
	return nil, nil
}

func (s *stubSearcher) Queries(context.Context, uuid.UUID) (models.QueryParameters, []models.SourceStatus, error) {
	return models.QueryParameters{}, nil, catch.ErrNotFound
}

func (s *stubSearcher) Statistics(context.Context, []string) ([]models.SourceSummary, error) {
	return nil, nil
}

func (s *stubSearcher) Updates(context.Context, []string) ([]models.QueryUpdate, error) {
	return nil, nil
}

func (s *stubSearcher) SearchFixed(context.Context, float64, float64, []string, catch.FixedParams) ([]models.FixedObservation, error) {
	return nil, nil
}

func testTaskJob() models.QueuedJob {
	return models.QueuedJob{
		JobID: uuid.New(),
		Query: models.TargetQuery{
			Target:  "65P",
			Type:    models.TargetComet,
			Sources: []string{"skymapper"},
		},
		Timeout: time.Minute,
	}
}

// terminal returns the messages with a terminal status.
func terminal(messages []models.Message) []models.Message {
	var out []models.Message
	for _, msg := range messages {
		if msg.Status == models.TaskSuccess || msg.Status == models.TaskError {
			out = append(out, msg)
		}
	}
	return out
}

func TestTask_Success(t *testing.T) {
	pub := &capturePublisher{}
	searcher := &stubSearcher{search: func(_ context.Context, progress catch.Progress) error {
		progress("SkyMapper: 2 observations found.")
		return nil
	}}
	task := NewTask(searcher, pub, discardLogger())

	job := testTaskJob()
	require.NoError(t, task.Run(context.Background(), job))

	messages := pub.all()
	require.Len(t, messages, 3)
	assert.Equal(t, startText, messages[0].Text)
	assert.Equal(t, models.TaskRunning, messages[0].Status)
	assert.Equal(t, models.TaskRunning, messages[1].Status)
	assert.Equal(t, "SkyMapper: 2 observations found.", messages[1].Text)

	term := terminal(messages)
	require.Len(t, term, 1)
	assert.Equal(t, models.TaskSuccess, term[0].Status)
	assert.Equal(t, completeText, term[0].Text)
	assert.Equal(t, models.JobPrefix(job.JobID), term[0].JobPrefix)
}

func TestTask_DomainErrorSurfacedVerbatim(t *testing.T) {
	pub := &capturePublisher{}
	searcher := &stubSearcher{search: func(context.Context, catch.Progress) error {
		return catch.Errorf("moving target ephemeris for 9999P is not available")
	}}
	task := NewTask(searcher, pub, discardLogger())

	err := task.Run(context.Background(), testTaskJob())
	require.Error(t, err)

	term := terminal(pub.all())
	require.Len(t, term, 1)
	assert.Equal(t, models.TaskError, term[0].Status)
	assert.Equal(t, "moving target ephemeris for 9999P is not available", term[0].Text)
}

func TestTask_UnexpectedErrorDoesNotLeak(t *testing.T) {
	pub := &capturePublisher{}
	searcher := &stubSearcher{search: func(context.Context, catch.Progress) error {
		return errors.New("pq: connection refused at 10.0.0.5:5432")
	}}
	task := NewTask(searcher, pub, discardLogger())

	err := task.Run(context.Background(), testTaskJob())
	require.Error(t, err)

	term := terminal(pub.all())
	require.Len(t, term, 1)
	assert.Equal(t, models.TaskError, term[0].Status)
	assert.Equal(t, unexpectedText, term[0].Text)
	assert.NotContains(t, term[0].Text, "10.0.0.5")
}

func TestTask_PanicRecoveredWithTerminalMessage(t *testing.T) {
	pub := &capturePublisher{}
	searcher := &stubSearcher{search: func(context.Context, catch.Progress) error {
		panic("index out of range")
	}}
	task := NewTask(searcher, pub, discardLogger())

	var err error
	assert.NotPanics(t, func() {
		err = task.Run(context.Background(), testTaskJob())
	})
	require.Error(t, err)

	term := terminal(pub.all())
	require.Len(t, term, 1)
	assert.Equal(t, models.TaskError, term[0].Status)
	assert.Equal(t, unexpectedText, term[0].Text)
}

func TestTask_TimeoutStillPublishesTerminal(t *testing.T) {
	pub := &capturePublisher{}
	searcher := &stubSearcher{search: func(ctx context.Context, _ catch.Progress) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	task := NewTask(searcher, pub, discardLogger())

	job := testTaskJob()
	job.Timeout = 10 * time.Millisecond
	err := task.Run(context.Background(), job)
	require.Error(t, err)

	term := terminal(pub.all())
	require.Len(t, term, 1)
	assert.Equal(t, models.TaskError, term[0].Status)
	assert.Equal(t, unexpectedText, term[0].Text)
}
