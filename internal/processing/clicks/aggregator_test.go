package clicks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
)

var t0 = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func click(linkID string, offset time.Duration) events.ClickEvent {
	return events.ClickEvent{LinkID: linkID, Timestamp: t0.Add(offset), Count: 1}
}

func TestRunEmptyLogIsNoOp(t *testing.T) {
	log := &memoryLog{}
	store := newRecordingStore()
	sink := &recordingSink{}
	a := NewAggregator(log, store, nil, sink, AggregatorOptions{})

	for range 2 {
		summary, err := a.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if summary.Drained != 0 || summary.Updates != 0 || summary.Updated != 0 || summary.Failed != 0 || summary.Batches != 0 {
			t.Errorf("summary = %+v, want zeroes", summary)
		}
	}
	if store.calls() != 0 || len(sink.batches) != 0 {
		t.Errorf("store calls = %d, sink batches = %d, want none", store.calls(), len(sink.batches))
	}
}

func TestCoalesceIsOrderIndependent(t *testing.T) {
	orders := [][]events.ClickEvent{
		{click("A", 0), click("A", time.Second), click("B", 2*time.Second)},
		{click("B", 2*time.Second), click("A", time.Second), click("A", 0)},
		{click("A", time.Second), click("B", 2*time.Second), click("A", 0)},
	}
	want := []ClickUpdate{
		{LinkID: "A", TotalCount: 2, LastTimestamp: t0.Add(time.Second)},
		{LinkID: "B", TotalCount: 1, LastTimestamp: t0.Add(2 * time.Second)},
	}

	for i, order := range orders {
		t.Run(fmt.Sprintf("order %d", i), func(t *testing.T) {
			got := Coalesce(order)
			if len(got) != len(want) {
				t.Fatalf("Coalesce() = %+v, want %+v", got, want)
			}
			for j := range want {
				if got[j].LinkID != want[j].LinkID || got[j].TotalCount != want[j].TotalCount || !got[j].LastTimestamp.Equal(want[j].LastTimestamp) {
					t.Errorf("update %d = %+v, want %+v", j, got[j], want[j])
				}
			}
		})
	}
}

func TestCoalesceSumsCountsAndSkipsBlankLinks(t *testing.T) {
	got := Coalesce([]events.ClickEvent{
		{LinkID: "A", Timestamp: t0, Count: 3},
		{LinkID: "A", Timestamp: t0, Count: 0},
		{LinkID: "", Timestamp: t0, Count: 1},
	})
	if len(got) != 1 || got[0].TotalCount != 4 {
		t.Errorf("Coalesce() = %+v, want A=4", got)
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name        string
		n           int
		size        int
		wantBatches int
		wantLast    int
	}{
		{"exact", 1000, 50, 20, 50},
		{"remainder", 101, 50, 3, 1},
		{"smaller than batch", 7, 50, 1, 7},
		{"empty", 0, 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Partition(make([]ClickUpdate, tt.n), tt.size)
			if len(got) != tt.wantBatches {
				t.Fatalf("batches = %d, want %d", len(got), tt.wantBatches)
			}
			if tt.wantBatches > 0 && len(got[len(got)-1]) != tt.wantLast {
				t.Errorf("last batch = %d, want %d", len(got[len(got)-1]), tt.wantLast)
			}
		})
	}
}

func TestRunIsolatesFailingItem(t *testing.T) {
	log := &memoryLog{}
	for i := range 1000 {
		_ = log.Append(context.Background(), click(fmt.Sprintf("link-%04d", i), time.Duration(i)*time.Millisecond))
	}

	store := newRecordingStore()
	// link-0317 sorts into batch 7 (items 300-349).
	store.failFor["link-0317"] = errors.New("row locked")

	a := NewAggregator(log, store, nil, nil, AggregatorOptions{DrainLimit: 1000, BatchSize: 50, Parallelism: 8})
	summary, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Drained != 1000 || summary.Updates != 1000 {
		t.Errorf("drained/updates = %d/%d, want 1000/1000", summary.Drained, summary.Updates)
	}
	if summary.Batches != 20 {
		t.Errorf("Batches = %d, want 20", summary.Batches)
	}
	if summary.Updated != 999 || summary.Failed != 1 {
		t.Errorf("updated/failed = %d/%d, want 999/1", summary.Updated, summary.Failed)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].LinkID != "link-0317" || summary.Failures[0].Delta != 1 {
		t.Errorf("Failures = %+v", summary.Failures)
	}

	for i := range 1000 {
		id := fmt.Sprintf("link-%04d", i)
		got := len(store.increments[id])
		want := 1
		if id == "link-0317" {
			want = 0
		}
		if got != want {
			t.Errorf("%s increments = %d, want %d", id, got, want)
		}
	}
}

func TestRunBoundsParallelism(t *testing.T) {
	log := &memoryLog{}
	for i := range 40 {
		_ = log.Append(context.Background(), click(fmt.Sprintf("l%02d", i), 0))
	}
	store := newRecordingStore()
	store.delay = 5 * time.Millisecond

	a := NewAggregator(log, store, nil, nil, AggregatorOptions{BatchSize: 20, Parallelism: 4})
	if _, err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.maxInFlight > 4 {
		t.Errorf("max in-flight increments = %d, want <= 4", store.maxInFlight)
	}
}

func TestRunDrainIsDestructive(t *testing.T) {
	log := &memoryLog{}
	for range 3 {
		_ = log.Append(context.Background(), click("A", 0))
	}
	store := newRecordingStore()
	a := NewAggregator(log, store, nil, nil, AggregatorOptions{DrainLimit: 2})

	first, _ := a.Run(context.Background())
	second, _ := a.Run(context.Background())
	third, _ := a.Run(context.Background())

	if first.Drained != 2 || second.Drained != 1 || third.Drained != 0 {
		t.Errorf("drained = %d/%d/%d, want 2/1/0", first.Drained, second.Drained, third.Drained)
	}
	if first.Position == nil || first.Position.ApproxLength != 1 {
		t.Errorf("first position = %+v, want 1 left", first.Position)
	}

	var total int64
	for _, inc := range store.increments["A"] {
		total += inc.delta
	}
	if total != 3 {
		t.Errorf("total increments for A = %d, want 3", total)
	}
}

func TestRunSkipsWhenLeaseHeld(t *testing.T) {
	log := &memoryLog{}
	_ = log.Append(context.Background(), click("A", 0))
	lease := &stubLease{err: ErrLeaseHeld}

	summary, err := NewAggregator(log, newRecordingStore(), lease, nil, AggregatorOptions{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !summary.Skipped {
		t.Error("Skipped = false, want true")
	}
	if log.drains != 0 || log.len() != 1 {
		t.Errorf("drains = %d, remaining = %d; log must be untouched", log.drains, log.len())
	}
}

func TestRunReleasesLease(t *testing.T) {
	lease := &stubLease{}
	if _, err := NewAggregator(&memoryLog{}, newRecordingStore(), lease, nil, AggregatorOptions{}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if lease.acquired != 1 || lease.released != 1 {
		t.Errorf("acquired/released = %d/%d, want 1/1", lease.acquired, lease.released)
	}
}

func TestRunExtendsLeaseBeforeEachBatch(t *testing.T) {
	tests := []struct {
		name      string
		extendErr error
	}{
		{"held", nil},
		{"lost mid run", ErrLeaseLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &memoryLog{}
			for _, id := range []string{"A", "B", "C"} {
				_ = log.Append(context.Background(), click(id, 0))
			}
			store := newRecordingStore()
			lease := &stubLease{extendErr: tt.extendErr}

			summary, err := NewAggregator(log, store, lease, nil, AggregatorOptions{BatchSize: 1}).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if lease.extended != 3 {
				t.Errorf("extended = %d, want one per batch (3)", lease.extended)
			}
			if summary.Updated != 3 {
				t.Errorf("Updated = %d, want 3; drained work must still be applied", summary.Updated)
			}
			if lease.released != 1 {
				t.Errorf("released = %d, want 1", lease.released)
			}
		})
	}
}

func TestRunLeaseError(t *testing.T) {
	lease := &stubLease{err: errors.New("redis down")}
	if _, err := NewAggregator(&memoryLog{}, newRecordingStore(), lease, nil, AggregatorOptions{}).Run(context.Background()); err == nil {
		t.Fatal("expected error when the lease backend fails")
	}
}

func TestRunDrainError(t *testing.T) {
	log := &memoryLog{drainErr: errors.New("log down")}
	if _, err := NewAggregator(log, newRecordingStore(), nil, nil, AggregatorOptions{}).Run(context.Background()); err == nil {
		t.Fatal("expected drain error")
	}
}

func TestRunForwardsRawEventsToSink(t *testing.T) {
	log := &memoryLog{}
	_ = log.Append(context.Background(), click("A", 0))
	_ = log.Append(context.Background(), click("A", time.Second))
	sink := &recordingSink{err: errors.New("clickhouse down")}
	store := newRecordingStore()

	summary, err := NewAggregator(log, store, nil, sink, AggregatorOptions{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 2 {
		t.Errorf("sink batches = %v, want one batch of 2 raw events", sink.batches)
	}
	if summary.Updated != 1 || store.increments["A"][0].delta != 2 {
		t.Errorf("sink failure must not block counters: summary %+v", summary)
	}
}
