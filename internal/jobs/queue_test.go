package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var campaign = types.Campaign{Query: "dentists krakow", MaxResults: 3}

func waitFor(t *testing.T, q *Queue, id string, want Status) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		var err error
		snap, err = q.Get(id)
		return err == nil && snap.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestQueue_RunsHunt(t *testing.T) {
	runner := func(_ context.Context, c types.Campaign, onProgress pipeline.ProgressCallback) (*pipeline.Report, error) {
		onProgress(pipeline.ProgressEvent{Step: pipeline.StageDiscovery, Message: "searching"})
		onProgress(pipeline.ProgressEvent{Step: pipeline.StageDone, Message: "done"})
		return &pipeline.Report{Query: c.SearchQuery(), Saved: 2}, nil
	}
	q := NewQueue(context.Background(), runner, Options{})
	defer func() { _ = q.Close() }()

	snap, err := q.Submit(campaign)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)

	done := waitFor(t, q, snap.ID, StatusSucceeded)
	require.NotNil(t, done.Report)
	assert.Equal(t, 2, done.Report.Saved)
	assert.Equal(t, 2, done.Events)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.FinishedAt)

	past, ch, _, err := q.Subscribe(snap.ID)
	require.NoError(t, err)
	require.Len(t, past, 2)
	assert.Equal(t, snap.ID, past[0].HuntID)
	_, open := <-ch
	assert.False(t, open, "finished job has a closed stream")
}

func TestQueue_FailedHunt(t *testing.T) {
	runner := func(context.Context, types.Campaign, pipeline.ProgressCallback) (*pipeline.Report, error) {
		return nil, errors.New("no candidates found")
	}
	q := NewQueue(context.Background(), runner, Options{})
	defer func() { _ = q.Close() }()

	snap, err := q.Submit(campaign)
	require.NoError(t, err)
	done := waitFor(t, q, snap.ID, StatusFailed)
	assert.Equal(t, "no candidates found", done.Error)
}

func TestQueue_CancelRunning(t *testing.T) {
	started := make(chan struct{})
	runner := func(ctx context.Context, _ types.Campaign, _ pipeline.ProgressCallback) (*pipeline.Report, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	q := NewQueue(context.Background(), runner, Options{})
	defer func() { _ = q.Close() }()

	snap, err := q.Submit(campaign)
	require.NoError(t, err)
	<-started
	waitFor(t, q, snap.ID, StatusRunning)

	require.NoError(t, q.Cancel(snap.ID))
	waitFor(t, q, snap.ID, StatusCancelled)
	assert.ErrorIs(t, q.Cancel(snap.ID), ErrFinished)
}

func TestQueue_CancelQueued(t *testing.T) {
	release := make(chan struct{})
	calls := make(chan string, 2)
	runner := func(_ context.Context, c types.Campaign, _ pipeline.ProgressCallback) (*pipeline.Report, error) {
		calls <- c.Query
		<-release
		return &pipeline.Report{}, nil
	}
	q := NewQueue(context.Background(), runner, Options{Workers: 1})
	defer func() { _ = q.Close() }()

	first, err := q.Submit(campaign)
	require.NoError(t, err)
	<-calls

	second := campaign
	second.Query = "plumbers gdansk"
	queued, err := q.Submit(second)
	require.NoError(t, err)
	require.NoError(t, q.Cancel(queued.ID))
	close(release)

	waitFor(t, q, first.ID, StatusSucceeded)
	snap := waitFor(t, q, queued.ID, StatusCancelled)
	assert.Nil(t, snap.StartedAt)
	select {
	case query := <-calls:
		t.Fatalf("cancelled job ran: %s", query)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQueue_SubscribeLive(t *testing.T) {
	step := make(chan struct{})
	runner := func(_ context.Context, _ types.Campaign, onProgress pipeline.ProgressCallback) (*pipeline.Report, error) {
		onProgress(pipeline.ProgressEvent{Message: "one"})
		<-step
		onProgress(pipeline.ProgressEvent{Message: "two"})
		return &pipeline.Report{}, nil
	}
	q := NewQueue(context.Background(), runner, Options{})
	defer func() { _ = q.Close() }()

	snap, err := q.Submit(campaign)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, _ := q.Get(snap.ID)
		return s.Events == 1
	}, 2*time.Second, 5*time.Millisecond)

	past, ch, unsubscribe, err := q.Subscribe(snap.ID)
	require.NoError(t, err)
	defer unsubscribe()
	require.Len(t, past, 1)
	assert.Equal(t, "one", past[0].Message)

	close(step)
	var live []string
	for e := range ch {
		live = append(live, e.Message)
	}
	assert.Equal(t, []string{"two"}, live)
}

func TestQueue_Errors(t *testing.T) {
	q := NewQueue(context.Background(), func(context.Context, types.Campaign, pipeline.ProgressCallback) (*pipeline.Report, error) {
		return nil, nil
	}, Options{})

	_, err := q.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, q.Cancel("missing"), ErrNotFound)
	_, _, _, err = q.Subscribe("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = q.Submit(types.Campaign{MaxResults: 3})
	assert.Error(t, err, "invalid campaign is rejected")

	require.NoError(t, q.Close())
	_, err = q.Submit(campaign)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_List(t *testing.T) {
	q := NewQueue(context.Background(), func(context.Context, types.Campaign, pipeline.ProgressCallback) (*pipeline.Report, error) {
		return &pipeline.Report{}, nil
	}, Options{})
	defer func() { _ = q.Close() }()

	a, err := q.Submit(campaign)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	b, err := q.Submit(campaign)
	require.NoError(t, err)

	list := q.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}
