package http

import (
	"context"
	"sync"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	"github.com/IgorGrieder/linkedge/internal/processing/redirect"
)

type memoryLinks struct {
	mu      sync.Mutex
	links   map[string]*redirect.LinkRecord
	lookups int
}

func newMemoryLinks(links ...*redirect.LinkRecord) *memoryLinks {
	m := &memoryLinks{links: map[string]*redirect.LinkRecord{}}
	for _, l := range links {
		m.links[l.Domain+":"+l.Key] = l
	}
	return m
}

func (m *memoryLinks) FindByDomainKey(_ context.Context, domain, key string) (*redirect.LinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	l, ok := m.links[domain+":"+key]
	if !ok {
		return nil, redirect.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

type emptyCache struct{}

func (emptyCache) Get(context.Context, string, string) (*redirect.LinkRecord, error) {
	return nil, redirect.ErrNotFound
}

func (emptyCache) Set(context.Context, *redirect.LinkRecord) error { return nil }

type memoryClickLog struct {
	mu      sync.Mutex
	entries []events.ClickEvent
}

func (l *memoryClickLog) Append(_ context.Context, e events.ClickEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *memoryClickLog) DrainUpTo(_ context.Context, n int) ([]events.ClickEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n = min(n, len(l.entries))
	out := append([]events.ClickEvent(nil), l.entries[:n]...)
	l.entries = l.entries[n:]
	return out, nil
}

func (l *memoryClickLog) Inspect(context.Context) (clicks.LogPosition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clicks.LogPosition{ApproxLength: int64(len(l.entries))}, nil
}

func (l *memoryClickLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type counterWrite struct {
	delta int64
	last  time.Time
}

type memoryCounters struct {
	mu     sync.Mutex
	writes map[string][]counterWrite
}

func (c *memoryCounters) IncrementClicks(_ context.Context, linkID string, delta int64, last time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writes == nil {
		c.writes = map[string][]counterWrite{}
	}
	c.writes[linkID] = append(c.writes[linkID], counterWrite{delta: delta, last: last})
	return nil
}

func (c *memoryCounters) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.writes {
		n += len(w)
	}
	return n
}

type stubRunner struct {
	summary clicks.RunSummary
	err     error
	calls   int
}

func (s *stubRunner) Run(context.Context) (clicks.RunSummary, error) {
	s.calls++
	return s.summary, s.err
}

type stubDecider struct {
	decision redirect.Decision
	got      redirect.Request
}

func (s *stubDecider) Decide(_ context.Context, req redirect.Request) redirect.Decision {
	s.got = req
	return s.decision
}
