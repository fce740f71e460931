package usecase

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeTicker delivers ticks only when the test sends them.
type fakeTicker struct {
	ch      chan time.Time
	period  time.Duration
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

// tickerFactory records every ticker the engine creates.
type tickerFactory struct {
	created chan *fakeTicker
}

func newTickerFactory() *tickerFactory {
	return &tickerFactory{created: make(chan *fakeTicker, 16)}
}

func (f *tickerFactory) New(d time.Duration) Ticker {
	t := &fakeTicker{ch: make(chan time.Time), period: d}
	f.created <- t
	return t
}

// mockIdleProvider implements domain.IdleProvider for testing
type mockIdleProvider struct {
	mu  sync.Mutex
	d   time.Duration
	err error
}

func (m *mockIdleProvider) IdleDuration() (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d, m.err
}

func (m *mockIdleProvider) Set(d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d, m.err = d, err
}

// mockConfigStore implements domain.ConfigStore for testing
type mockConfigStore struct {
	mu      sync.Mutex
	saved   []domain.Config
	saveErr error
}

func (m *mockConfigStore) LoadConfig() (*domain.ConfigPatch, error) {
	return nil, nil
}

func (m *mockConfigStore) SaveConfig(cfg domain.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, cfg)
	return nil
}

func (m *mockConfigStore) Saved() []domain.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Config(nil), m.saved...)
}

// recordingSink implements domain.EventSink for testing
type recordingSink struct {
	mu      sync.Mutex
	batches []domain.EventBatch
}

func (s *recordingSink) HandleEvents(batch domain.EventBatch, view domain.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
}

func (s *recordingSink) Kinds() []domain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.EventKind
	for _, b := range s.batches {
		for _, e := range b.Events {
			if e.Kind != domain.EventStatusUpdate {
				out = append(out, e.Kind)
			}
		}
	}
	return out
}

// mockProcessManager implements domain.ProcessManager for testing
type mockProcessManager struct {
	mu      sync.Mutex
	names   []string
	listErr error
}

func (m *mockProcessManager) FindByName(pattern string) ([]int, error) {
	return nil, nil
}

func (m *mockProcessManager) RunningNames() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.names...), nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return false
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

func (m *mockProcessManager) SetNames(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = names
}

// mockPolicyStore implements domain.PolicyStore for testing
type mockPolicyStore struct {
	policies []domain.WatchPolicy
}

func (m *mockPolicyStore) GetAll() []domain.WatchPolicy {
	return m.policies
}

func (m *mockPolicyStore) GetByID(id string) (*domain.WatchPolicy, error) {
	for _, p := range m.policies {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockPolicyStore) List() []string {
	ids := make([]string, len(m.policies))
	for i, p := range m.policies {
		ids[i] = p.ID
	}
	return ids
}

// mockDispatcher records dispatched actions.
type mockDispatcher struct {
	actions []domain.Action
	err     error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, action domain.Action) (domain.View, error) {
	if m.err != nil {
		return domain.View{}, m.err
	}
	m.actions = append(m.actions, action)
	return domain.View{}, nil
}

var (
	_ domain.IdleProvider   = (*mockIdleProvider)(nil)
	_ domain.ConfigStore    = (*mockConfigStore)(nil)
	_ domain.EventSink      = (*recordingSink)(nil)
	_ domain.ProcessManager = (*mockProcessManager)(nil)
	_ domain.PolicyStore    = (*mockPolicyStore)(nil)
	_ Dispatcher            = (*mockDispatcher)(nil)
)
