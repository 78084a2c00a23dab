package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/eventbus"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/events"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/metrics"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/notify"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/zapi"
)

type fakePoller struct {
	status *zapi.Status
	err    error
}

func (p *fakePoller) Status(context.Context) (*zapi.Status, error) {
	return p.status, p.err
}

func connected(v bool) *fakePoller {
	raw, _ := json.Marshal(map[string]bool{"connected": v, "session": v})

	return &fakePoller{status: &zapi.Status{Connected: v, Session: v, Raw: raw}}
}

type memStore struct {
	mu      sync.Mutex
	states  map[string]*models.MonitoringState
	history map[string][]*models.MonitoringHistoryEntry
	saves   int
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{
		states:  map[string]*models.MonitoringState{},
		history: map[string][]*models.MonitoringHistoryEntry{},
	}
}

func (s *memStore) LoadState(_ context.Context, key string) (*models.MonitoringState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}

	state, ok := s.states[key]
	if !ok {
		return nil, persistence.ErrMonitoringStateNotFound
	}

	cp := *state

	return &cp, nil
}

func (s *memStore) SaveState(_ context.Context, state *models.MonitoringState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	s.states[state.Key] = &cp
	s.saves++

	return nil
}

func (s *memStore) AppendHistory(_ context.Context, entry *models.MonitoringHistoryEntry, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	list := append([]*models.MonitoringHistoryEntry{&cp}, s.history[entry.Key]...)

	if len(list) > limit {
		list = list[:limit]
	}

	s.history[entry.Key] = list

	return nil
}

func (s *memStore) History(_ context.Context, key string, limit int) ([]*models.MonitoringHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.history[key]
	if len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, alert notify.Alert) error {
	args := m.Called(ctx, alert)

	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	}
}

func TestMonitor_Bootstrap(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	notifier := &mockNotifier{}

	m := New(connected(true), store, notifier, discardLogger(), WithClock(fixedClock()))

	result, err := m.Check(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Bootstrap)
	assert.False(t, result.Transitioned)
	assert.False(t, result.Alerted)
	assert.Equal(t, DefaultKey, result.Key)

	require.Contains(t, store.states, DefaultKey)
	assert.True(t, store.states[DefaultKey].Connected)
	assert.Len(t, store.history[DefaultKey], 1)

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestMonitor_Unchanged(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	notifier := &mockNotifier{}

	m := New(connected(true), store, notifier, discardLogger(), WithClock(fixedClock()))

	_, err := m.Check(context.Background())
	require.NoError(t, err)

	result, err := m.Check(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Bootstrap)
	assert.False(t, result.Transitioned)
	assert.Equal(t, 1, store.saves)
	assert.Len(t, store.history[DefaultKey], 1)

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestMonitor_Transition(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	notifier := &mockNotifier{}
	poller := connected(true)

	reg := prometheus.NewRegistry()
	rm := metrics.NewRelayMetrics(reg)

	m := New(poller, store, notifier, discardLogger(), WithClock(fixedClock()), WithMetrics(rm))

	_, err := m.Check(context.Background())
	require.NoError(t, err)

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(a notify.Alert) bool {
		return a.Key == DefaultKey && !a.Connected
	})).Return(nil).Once()

	*poller = *connected(false)

	result, err := m.Check(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Transitioned)
	assert.True(t, result.Alerted)
	assert.False(t, result.Connected)
	assert.False(t, store.states[DefaultKey].Connected)
	assert.Len(t, store.history[DefaultKey], 2)

	count, err := testutil.GatherAndCount(reg, "relay_monitor_checks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	notifier.AssertExpectations(t)
}

func TestMonitor_PollErrorCountsAsDisconnected(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	require.NoError(t, store.SaveState(context.Background(), &models.MonitoringState{Key: DefaultKey, Connected: true}))

	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(a notify.Alert) bool {
		return !a.Connected && a.Detail == "dial tcp: timeout"
	})).Return(nil).Once()

	m := New(&fakePoller{err: errors.New("dial tcp: timeout")}, store, notifier, discardLogger(), WithClock(fixedClock()))

	result, err := m.Check(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Transitioned)
	assert.Equal(t, "dial tcp: timeout", result.PollError)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(store.states[DefaultKey].Raw, &raw))
	assert.Equal(t, false, raw["connected"])
	assert.Equal(t, "dial tcp: timeout", raw["error"])

	notifier.AssertExpectations(t)
}

func TestMonitor_AlertFailureIsReported(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	require.NoError(t, store.SaveState(context.Background(), &models.MonitoringState{Key: DefaultKey, Connected: false}))

	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("no channel")).Once()

	m := New(connected(true), store, notifier, discardLogger())

	result, err := m.Check(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Transitioned)
	assert.False(t, result.Alerted)
	assert.Equal(t, "no channel", result.AlertError)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func TestMonitor_PublishesTransitions(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	require.NoError(t, store.SaveState(context.Background(), &models.MonitoringState{Key: DefaultKey, Connected: false}))

	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, DefaultKey, mock.MatchedBy(func(e eventbus.Event) bool {
		changed, ok := e.(events.ProviderStatusChanged)

		return ok && changed.Connected && !changed.Alerted
	})).Return(errors.New("bus closed")).Once()

	m := New(connected(true), store, nil, discardLogger(), WithPublisher(publisher))

	result, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Transitioned)

	publisher.AssertExpectations(t)
}

func TestMonitor_HistoryIsCapped(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	poller := connected(true)

	m := New(poller, store, nil, discardLogger(), WithHistoryLimit(3))

	for i := range 6 {
		*poller = *connected(i%2 == 0)

		_, err := m.Check(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, store.history[DefaultKey], 3)
}

func TestMonitor_LoadError(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.loadErr = errors.New("database is locked")

	m := New(connected(true), store, nil, discardLogger())

	_, err := m.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Zero(t, store.saves)
}

type countingChecker struct {
	calls atomic.Int32
}

func (c *countingChecker) Check(context.Context) (*CheckResult, error) {
	c.calls.Add(1)

	return &CheckResult{Key: DefaultKey}, nil
}

func TestScheduler(t *testing.T) {
	t.Parallel()

	_, err := NewScheduler(&countingChecker{}, "not a cron", discardLogger())
	require.Error(t, err)

	checker := &countingChecker{}

	scheduler, err := NewScheduler(checker, "@every 1s", discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, scheduler.Start(ctx))
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		return checker.calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestNewScheduler_DefaultSchedule(t *testing.T) {
	t.Parallel()

	scheduler, err := NewScheduler(&countingChecker{}, "", discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, scheduler.schedule)
}
