package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/dispatch"
	"github.com/jonathan/outreach-agent/internal/jobs"
	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/schemas"
	"github.com/jonathan/outreach-agent/internal/server/ratelimit"
	"github.com/jonathan/outreach-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory LeadStore.
type memStore struct {
	mu    sync.Mutex
	leads []types.Lead
	err   error
}

func (m *memStore) LoadAll(_ context.Context) ([]types.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]types.Lead(nil), m.leads...), nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = nil
	return m.err
}

// MockDispatcher implements LeadDispatcher for testing
type MockDispatcher struct {
	DispatchFunc func(ctx context.Context, leads []types.Lead, req dispatch.Request) (*dispatch.Result, error)
}

func (m *MockDispatcher) Dispatch(ctx context.Context, leads []types.Lead, req dispatch.Request) (*dispatch.Result, error) {
	return m.DispatchFunc(ctx, leads, req)
}

func storedLeads() []types.Lead {
	return []types.Lead{
		{ID: 2, Company: "Beta", Website: "https://beta.example", FitScore: 9, City: "Krakow", EmailSubject: "s", EmailBody: "b"},
		{ID: 1, Company: "Acme", Website: "https://acme.example", FitScore: 6, City: "Gdansk", EmailSubject: "s", EmailBody: "b"},
	}
}

type testEnv struct {
	server     *Server
	store      *memStore
	queue      *jobs.Queue
	dispatcher *MockDispatcher
	dispatched []types.Lead
	request    dispatch.Request
}

func newTestEnv(t *testing.T, runner jobs.Runner, mutate func(*Config)) *testEnv {
	t.Helper()
	if runner == nil {
		runner = func(_ context.Context, c types.Campaign, onProgress pipeline.ProgressCallback) (*pipeline.Report, error) {
			onProgress(pipeline.ProgressEvent{Step: pipeline.StageDone, Message: "Hunt complete"})
			return &pipeline.Report{Query: c.SearchQuery(), Saved: 1}, nil
		}
	}
	env := &testEnv{store: &memStore{leads: storedLeads()}}
	env.queue = jobs.NewQueue(context.Background(), runner, jobs.Options{})
	t.Cleanup(func() { _ = env.queue.Close() })
	env.dispatcher = &MockDispatcher{DispatchFunc: func(_ context.Context, leads []types.Lead, req dispatch.Request) (*dispatch.Result, error) {
		env.dispatched = leads
		env.request = req
		return &dispatch.Result{Attempted: len(leads), Sent: len(leads)}, nil
	}}

	defaults := config.Defaults()
	cfg := Config{
		Store:      env.store,
		Queue:      env.queue,
		Dispatcher: env.dispatcher,
		Defaults:   defaults,
		RateLimit:  &ratelimit.Config{Enabled: false},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	env.server = s
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateAndGetHunt(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/hunts", `{"industry":"dentists","city":"Krakow"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var snap jobs.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "/hunts/"+snap.ID, w.Header().Get("Location"))
	assert.Equal(t, 5, snap.Campaign.MaxResults, "default max results applied")
	assert.Equal(t, "pl-pl", snap.Campaign.Region)

	require.Eventually(t, func() bool {
		w := env.do(t, http.MethodGet, "/hunts/"+snap.ID, "")
		var got jobs.Snapshot
		_ = json.Unmarshal(w.Body.Bytes(), &got)
		return got.Status == jobs.StatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	w = env.do(t, http.MethodGet, "/hunts", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), snap.ID)
}

func TestCreateHunt_Invalid(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := env.do(t, http.MethodPost, "/hunts", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/hunts", `{"industry":"dentists"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/hunts", `{"query":"x","max_results":500}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHunt_NotFound(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/hunts/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/hunts/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/hunts/nope/events", "").Code)
}

func TestCancelHunt(t *testing.T) {
	started := make(chan struct{})
	runner := func(ctx context.Context, _ types.Campaign, _ pipeline.ProgressCallback) (*pipeline.Report, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	env := newTestEnv(t, runner, nil)

	w := env.do(t, http.MethodPost, "/hunts", `{"query":"dentists krakow"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var snap jobs.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	<-started

	w = env.do(t, http.MethodDelete, "/hunts/"+snap.ID, "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		s, _ := env.queue.Get(snap.ID)
		return s.Status == jobs.StatusCancelled
	}, 2*time.Second, 10*time.Millisecond)

	w = env.do(t, http.MethodDelete, "/hunts/"+snap.ID, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHuntEvents_Stream(t *testing.T) {
	release := make(chan struct{})
	runner := func(_ context.Context, _ types.Campaign, onProgress pipeline.ProgressCallback) (*pipeline.Report, error) {
		onProgress(pipeline.ProgressEvent{Step: pipeline.StageDiscovery, Message: "Searching"})
		<-release
		onProgress(pipeline.ProgressEvent{Step: pipeline.StageDone, Message: "Hunt complete"})
		return &pipeline.Report{}, nil
	}
	env := newTestEnv(t, runner, nil)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	snap, err := env.queue.Submit(types.Campaign{Query: "dentists", MaxResults: 1})
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/hunts/" + snap.ID + "/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	close(release)

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	require.NotEmpty(t, events)
	assert.Equal(t, "complete", events[len(events)-1])
	assert.Contains(t, events, "progress")
}

func TestListLeads(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodGet, "/leads", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp LeadsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Leads, 2)
	assert.Equal(t, "Beta", resp.Leads[0].Company)
	assert.Equal(t, 2, resp.Stats.Total)
	assert.Equal(t, 1, resp.Stats.Qualified)
	assert.Equal(t, 2, resp.Stats.UniqueCities)
	assert.InDelta(t, 7.5, resp.Stats.AverageScore, 1e-9)
}

func TestListLeads_MatchesLeadSchema(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodGet, "/leads", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Leads []json.RawMessage `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Leads)
	v := schemas.MustEmbedded(schemas.LeadSchema)
	for _, raw := range resp.Leads {
		assert.NoError(t, v.Validate(raw))
	}
}

func TestListLeads_Empty(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.store.leads = nil
	w := env.do(t, http.MethodGet, "/leads", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"leads":[]`)
}

func TestListLeads_StoreError(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.store.err = errors.New("disk full")
	w := env.do(t, http.MethodGet, "/leads", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestClearLeads(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/leads", "").Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/leads", "").Code)
	assert.Empty(t, env.store.leads)
}

func TestExportLeads(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodGet, "/leads/export", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="leads_export_20260301_093000.csv"`, w.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,company,website"))
}

func TestExportLeads_LegacyShape(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodGet, "/leads/export?shape=legacy", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.True(t, strings.HasPrefix(w.Body.String(), "id,company,website,phone,rating,email_draft"))
	assert.Contains(t, w.Body.String(), "Subject: s")
}

func TestExportLeads_UnknownShape(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodGet, "/leads/export?shape=xml", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDispatch(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodPost, "/dispatch", `{"lead_ids":[1],"sender_email":"me@agency.example","app_password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, env.dispatched, 1)
	assert.Equal(t, "Acme", env.dispatched[0].Company)
	assert.Equal(t, dispatch.TargetPerLead, env.request.Target)

	var result dispatch.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Sent)
}

func TestDispatch_FallsBackToConfig(t *testing.T) {
	env := newTestEnv(t, nil, func(cfg *Config) {
		cfg.Defaults.SenderEmail = "me@agency.example"
		cfg.Defaults.AppPassword = "pw"
		cfg.Defaults.DispatchTarget = "fixed-test-address"
		cfg.Defaults.TestRecipient = "qa@agency.example"
	})
	w := env.do(t, http.MethodPost, "/dispatch", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Len(t, env.dispatched, 2)
	assert.Equal(t, dispatch.TargetFixedTest, env.request.Target)
	assert.Equal(t, "qa@agency.example", env.request.TestRecipient)
}

func TestDispatch_MissingCredentials(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodPost, "/dispatch", `{"sender_email":"me@agency.example"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, env.dispatched)
}

func TestDispatch_InvalidTarget(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodPost, "/dispatch", `{"sender_email":"me@agency.example","app_password":"pw","target":"everyone"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := env.do(t, http.MethodOptions, "/leads", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, func(cfg *Config) {
		cfg.RateLimit = &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  1000,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/leads", Method: "GET", Limit: 1, Window: time.Hour, Burst: 1},
			},
		}
	})
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/leads", "").Code)

	w := env.do(t, http.MethodGet, "/leads", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
}
