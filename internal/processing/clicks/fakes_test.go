package clicks

import (
	"context"
	"sync"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
)

// --- Hand-written fakes ---

type memoryLog struct {
	mu       sync.Mutex
	entries  []events.ClickEvent
	appendFn func(ctx context.Context, e events.ClickEvent) error
	drainErr error
	drains   int
}

func (m *memoryLog) Append(ctx context.Context, e events.ClickEvent) error {
	if m.appendFn != nil {
		if err := m.appendFn(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryLog) DrainUpTo(_ context.Context, n int) ([]events.ClickEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drains++
	if m.drainErr != nil {
		return nil, m.drainErr
	}
	n = min(n, len(m.entries))
	out := append([]events.ClickEvent(nil), m.entries[:n]...)
	m.entries = m.entries[n:]
	return out, nil
}

func (m *memoryLog) Inspect(context.Context) (LogPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return LogPosition{ApproxLength: int64(len(m.entries))}, nil
}

func (m *memoryLog) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type increment struct {
	delta int64
	last  time.Time
}

type recordingStore struct {
	mu          sync.Mutex
	increments  map[string][]increment
	failFor     map[string]error
	inFlight    int
	maxInFlight int
	delay       time.Duration
}

func newRecordingStore() *recordingStore {
	return &recordingStore{increments: map[string][]increment{}, failFor: map[string]error{}}
}

func (s *recordingStore) IncrementClicks(_ context.Context, linkID string, delta int64, last time.Time) error {
	s.mu.Lock()
	s.inFlight++
	s.maxInFlight = max(s.maxInFlight, s.inFlight)
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if err := s.failFor[linkID]; err != nil {
		return err
	}
	s.increments[linkID] = append(s.increments[linkID], increment{delta: delta, last: last})
	return nil
}

func (s *recordingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, incs := range s.increments {
		n += len(incs)
	}
	return n
}

type stubLease struct {
	err       error
	extendErr error
	acquired  int
	extended  int
	released  int
}

func (l *stubLease) Acquire(context.Context) (LeaseHold, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return l, nil
}

func (l *stubLease) Extend(context.Context) error {
	l.extended++
	return l.extendErr
}

func (l *stubLease) Release(context.Context) error {
	l.released++
	return nil
}

type recordingSink struct {
	batches [][]events.ClickEvent
	err     error
}

func (s *recordingSink) WriteClicks(_ context.Context, batch []events.ClickEvent) error {
	s.batches = append(s.batches, batch)
	return s.err
}

type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memoryDeduper) FirstSeen(_ context.Context, key string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}
