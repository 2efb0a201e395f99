// Package jobs runs hunts in the background as cancellable jobs with a
// replayable progress stream.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/outreach-agent/internal/logging"
	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/types"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Done reports whether s is terminal.
func (s Status) Done() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

var (
	ErrNotFound  = errors.New("job not found")
	ErrFinished  = errors.New("job already finished")
	ErrQueueFull = errors.New("job queue is full")
	ErrClosed    = errors.New("job queue is closed")
)

// Runner executes one hunt. (*pipeline.Hunter).Hunt satisfies it.
type Runner func(ctx context.Context, campaign types.Campaign, onProgress pipeline.ProgressCallback) (*pipeline.Report, error)

// Snapshot is a point-in-time copy of a job.
type Snapshot struct {
	ID         string           `json:"id"`
	Status     Status           `json:"status"`
	Campaign   types.Campaign   `json:"campaign"`
	Report     *pipeline.Report `json:"report,omitempty"`
	Error      string           `json:"error,omitempty"`
	Events     int              `json:"events"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

type job struct {
	id         string
	campaign   types.Campaign
	status     Status
	report     *pipeline.Report
	err        error
	events     []pipeline.ProgressEvent
	subs       map[chan pipeline.ProgressEvent]struct{}
	cancel     context.CancelFunc
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
}

// Options configures a Queue.
type Options struct {
	Workers  int // default 1
	Capacity int // pending jobs, default 16
	Logger   logging.Logger
}

// Queue runs submitted hunts on a fixed set of workers.
type Queue struct {
	runner  Runner
	logger  logging.Logger
	pending chan *job
	group   *errgroup.Group
	stop    context.CancelFunc
	ctx     context.Context

	mu     sync.Mutex
	jobs   map[string]*job
	closed bool
}

// subscriberBuffer bounds how far a slow subscriber may lag before events are dropped.
const subscriberBuffer = 256

// NewQueue starts a queue whose workers live until Close or ctx is done.
func NewQueue(ctx context.Context, runner Runner, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 16
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	ctx, stop := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	q := &Queue{
		runner:  runner,
		logger:  opts.Logger,
		pending: make(chan *job, opts.Capacity),
		group:   g,
		stop:    stop,
		ctx:     gctx,
		jobs:    make(map[string]*job),
	}
	for i := 0; i < opts.Workers; i++ {
		g.Go(q.work)
	}
	return q
}

func (q *Queue) work() error {
	for {
		select {
		case <-q.ctx.Done():
			return nil
		case j := <-q.pending:
			q.run(j)
		}
	}
}

func (q *Queue) run(j *job) {
	ctx, cancel := context.WithCancel(q.ctx)
	defer cancel()

	q.mu.Lock()
	if j.status != StatusQueued {
		q.mu.Unlock()
		return
	}
	j.status = StatusRunning
	j.startedAt = time.Now().UTC()
	j.cancel = cancel
	campaign := j.campaign
	q.mu.Unlock()

	q.logger.Info("[Jobs] hunt %s started", j.id)
	report, err := q.runner(ctx, campaign, func(e pipeline.ProgressEvent) {
		e.HuntID = j.id
		q.publish(j, e)
	})

	q.mu.Lock()
	defer q.mu.Unlock()
	j.report = report
	switch {
	case err == nil:
		j.status = StatusSucceeded
	case errors.Is(err, context.Canceled):
		j.status = StatusCancelled
	default:
		j.status = StatusFailed
		j.err = err
	}
	q.finishLocked(j)
	q.logger.Info("[Jobs] hunt %s %s", j.id, j.status)
}

func (q *Queue) publish(j *job, e pipeline.ProgressEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j.events = append(j.events, e)
	for ch := range j.subs {
		select {
		case ch <- e:
		default:
			q.logger.Debug("[Jobs] subscriber of %s is lagging, event dropped", j.id)
		}
	}
}

// finishLocked stamps j as finished and closes its subscribers. q.mu must be held.
func (q *Queue) finishLocked(j *job) {
	j.finishedAt = time.Now().UTC()
	for ch := range j.subs {
		close(ch)
	}
	j.subs = nil
}

// Submit enqueues a hunt for campaign.
func (q *Queue) Submit(campaign types.Campaign) (Snapshot, error) {
	if err := campaign.Validate(); err != nil {
		return Snapshot{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Snapshot{}, ErrClosed
	}
	j := &job{
		id:        uuid.NewString(),
		campaign:  campaign,
		status:    StatusQueued,
		subs:      make(map[chan pipeline.ProgressEvent]struct{}),
		createdAt: time.Now().UTC(),
	}
	select {
	case q.pending <- j:
	default:
		return Snapshot{}, ErrQueueFull
	}
	q.jobs[j.id] = j
	return snapshotLocked(j), nil
}

// Get returns the current state of a job.
func (q *Queue) Get(id string) (Snapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snapshotLocked(j), nil
}

// List returns all jobs, newest first.
func (q *Queue) List() []Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Snapshot, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, snapshotLocked(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// Cancel stops a queued or running job. A cancelled hunt persists nothing.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}
	switch {
	case j.status.Done():
		return ErrFinished
	case j.status == StatusQueued:
		j.status = StatusCancelled
		q.finishLocked(j)
	case j.cancel != nil:
		j.cancel()
	}
	return nil
}

// Subscribe returns the events published so far and a channel of later events.
// The channel is closed when the job finishes; call the returned func to detach early.
func (q *Queue) Subscribe(id string) ([]pipeline.ProgressEvent, <-chan pipeline.ProgressEvent, func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return nil, nil, nil, ErrNotFound
	}

	past := append([]pipeline.ProgressEvent(nil), j.events...)
	ch := make(chan pipeline.ProgressEvent, subscriberBuffer)
	if j.status.Done() {
		close(ch)
		return past, ch, func() {}, nil
	}
	j.subs[ch] = struct{}{}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			if _, ok := j.subs[ch]; ok {
				delete(j.subs, ch)
				close(ch)
			}
		})
	}
	return past, ch, unsubscribe, nil
}

// Close cancels running jobs and waits for the workers to exit.
func (q *Queue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.stop()
	err := q.group.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range q.jobs {
		if j.status == StatusQueued {
			j.status = StatusCancelled
			q.finishLocked(j)
		}
	}
	return err
}

func snapshotLocked(j *job) Snapshot {
	s := Snapshot{
		ID:        j.id,
		Status:    j.status,
		Campaign:  j.campaign,
		Report:    j.report,
		Events:    len(j.events),
		CreatedAt: j.createdAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		s.StartedAt = &t
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}
