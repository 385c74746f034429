package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader serves queued messages and then blocks until the fetch context
// expires, the way a quiet topic behaves.
type fakeReader struct {
	queue     []kafka.Message
	committed []kafka.Message
	lag       int64
	fetchErr  error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.fetchErr != nil {
		return kafka.Message{}, r.fetchErr
	}
	if len(r.queue) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{Lag: r.lag} }

func (r *fakeReader) Close() error { return nil }

func readerOf(r *fakeReader) func() messageReader {
	return func() messageReader { return r }
}

func encoded(t *testing.T, e events.ClickEvent) kafka.Message {
	t.Helper()
	raw, err := events.Encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return kafka.Message{Value: raw}
}

func TestAppendKeysByLinkID(t *testing.T) {
	w := &fakeWriter{}
	log := newClickLog(w, readerOf(&fakeReader{}), "clicks", 10*time.Millisecond)

	err := log.Append(context.Background(), events.ClickEvent{EventID: "e1", LinkID: "link_1", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "link_1" {
		t.Fatalf("expected key link_1, got %q", w.msgs[0].Key)
	}

	got, err := events.Decode(w.msgs[0].Value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.EventID != "e1" || got.Count != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestAppendPropagatesWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	log := newClickLog(w, readerOf(&fakeReader{}), "clicks", 10*time.Millisecond)

	if err := log.Append(context.Background(), events.ClickEvent{LinkID: "link_1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDrainStopsAtLimitAndCommits(t *testing.T) {
	r := &fakeReader{}
	for _, id := range []string{"a", "b", "c"} {
		r.queue = append(r.queue, encoded(t, events.ClickEvent{LinkID: id}))
	}
	log := newClickLog(&fakeWriter{}, readerOf(r), "clicks", 10*time.Millisecond)

	got, err := log.DrainUpTo(context.Background(), 2)
	if err != nil {
		t.Fatalf("DrainUpTo: %v", err)
	}
	if len(got) != 2 || got[0].LinkID != "a" || got[1].LinkID != "b" {
		t.Fatalf("unexpected drain: %+v", got)
	}
	if len(r.committed) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(r.committed))
	}
	if len(r.queue) != 1 {
		t.Fatalf("expected 1 message left, got %d", len(r.queue))
	}
}

func TestDrainReturnsEarlyOnQuietTopic(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		encoded(t, events.ClickEvent{LinkID: "a"}),
		{Value: []byte("not json")},
	}}
	log := newClickLog(&fakeWriter{}, readerOf(r), "clicks", 10*time.Millisecond)

	got, err := log.DrainUpTo(context.Background(), 100)
	if err != nil {
		t.Fatalf("DrainUpTo: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 decoded event, got %d", len(got))
	}
	// undecodable entries are committed too, or they would block the partition
	if len(r.committed) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(r.committed))
	}
}

func TestDrainEmptyTopic(t *testing.T) {
	r := &fakeReader{}
	log := newClickLog(&fakeWriter{}, readerOf(r), "clicks", 5*time.Millisecond)

	got, err := log.DrainUpTo(context.Background(), 10)
	if err != nil {
		t.Fatalf("DrainUpTo: %v", err)
	}
	if len(got) != 0 || len(r.committed) != 0 {
		t.Fatalf("expected nothing drained, got %d events and %d commits", len(got), len(r.committed))
	}
}

func TestDrainFetchError(t *testing.T) {
	r := &fakeReader{fetchErr: errors.New("group coordinator not available")}
	log := newClickLog(&fakeWriter{}, readerOf(r), "clicks", 5*time.Millisecond)

	if _, err := log.DrainUpTo(context.Background(), 10); err == nil {
		t.Fatal("expected error")
	}
}

func TestInspectReportsLag(t *testing.T) {
	log := newClickLog(&fakeWriter{}, readerOf(&fakeReader{lag: 17}), "clicks", time.Millisecond)
	if _, err := log.DrainUpTo(context.Background(), 1); err != nil {
		t.Fatalf("DrainUpTo: %v", err)
	}

	pos, err := log.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if pos.ApproxLength != 17 {
		t.Fatalf("expected lag 17, got %d", pos.ApproxLength)
	}
}

func TestReaderOpenedOnlyByDrain(t *testing.T) {
	opened := 0
	r := &fakeReader{lag: 5}
	log := newClickLog(&fakeWriter{}, func() messageReader {
		opened++
		return r
	}, "clicks", time.Millisecond)

	if err := log.Append(context.Background(), events.ClickEvent{LinkID: "link_1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	pos, err := log.Inspect(context.Background())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if opened != 0 {
		t.Fatalf("append and inspect opened the group reader %d times", opened)
	}
	if pos.ApproxLength != 0 {
		t.Errorf("ApproxLength before any drain = %d, want 0", pos.ApproxLength)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if opened != 0 {
		t.Fatalf("close opened the group reader")
	}

	for range 2 {
		if _, err := log.DrainUpTo(context.Background(), 1); err != nil {
			t.Fatalf("DrainUpTo: %v", err)
		}
	}
	if opened != 1 {
		t.Errorf("opened = %d, want 1", opened)
	}
}

func TestNewWriterBatchTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"default stays under the emit budget", 0, 10 * time.Millisecond},
		{"configured", 5 * time.Millisecond, 5 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWriter(Options{Brokers: []string{"kafka:9092"}, Topic: "clicks", BatchTimeout: tt.in})
			if w.BatchTimeout != tt.want {
				t.Errorf("BatchTimeout = %s, want %s", w.BatchTimeout, tt.want)
			}
			if w.Topic != "clicks" {
				t.Errorf("Topic = %q, want clicks", w.Topic)
			}
		})
	}
}

func TestReaderConfigJoinsGroup(t *testing.T) {
	cfg := readerConfig(Options{Brokers: []string{"kafka:9092"}, Topic: "clicks", GroupID: "click-aggregator", MaxWait: time.Second})
	if cfg.GroupID != "click-aggregator" || cfg.StartOffset != kafka.FirstOffset {
		t.Errorf("reader config = %+v", cfg)
	}
}
