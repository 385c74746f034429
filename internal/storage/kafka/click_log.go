package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

type Options struct {
	Brokers []string
	Topic   string
	GroupID string
	// MaxWait bounds how long a drain waits for the next message before
	// treating the topic as empty.
	MaxWait time.Duration
	// BatchTimeout bounds how long a write waits for a batch to fill. It
	// must stay below the emit budget or every append times out.
	BatchTimeout time.Duration
}

// ClickLog uses a Kafka topic as the append log. A drain commits the offsets
// of everything it fetched, so entries are never delivered twice.
//
// The consumer-group reader is opened on the first drain. A process that only
// appends never joins the group and so is never assigned partitions.
type ClickLog struct {
	writer     messageWriter
	openReader func() messageReader
	readerMu   sync.Mutex
	reader     messageReader
	topic      string
	maxWait    time.Duration
}

func NewClickLog(opts Options) *ClickLog {
	if opts.MaxWait <= 0 {
		opts.MaxWait = 250 * time.Millisecond
	}

	openReader := func() messageReader {
		return kafka.NewReader(readerConfig(opts))
	}
	return newClickLog(newWriter(opts), openReader, opts.Topic, opts.MaxWait)
}

func newWriter(opts Options) *kafka.Writer {
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 10 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Topic:                  opts.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           opts.BatchTimeout,
		AllowAutoTopicCreation: true,
	}
}

func readerConfig(opts Options) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:     opts.Brokers,
		Topic:       opts.Topic,
		GroupID:     opts.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     opts.MaxWait,
		StartOffset: kafka.FirstOffset,
	}
}

func newClickLog(w messageWriter, openReader func() messageReader, topic string, maxWait time.Duration) *ClickLog {
	return &ClickLog{
		writer:     w,
		openReader: openReader,
		topic:      topic,
		maxWait:    maxWait,
	}
}

// consumer opens the group reader on first use.
func (l *ClickLog) consumer() messageReader {
	l.readerMu.Lock()
	defer l.readerMu.Unlock()
	if l.reader == nil {
		l.reader = l.openReader()
	}
	return l.reader
}

// openedReader returns the reader only if a drain already opened it.
func (l *ClickLog) openedReader() messageReader {
	l.readerMu.Lock()
	defer l.readerMu.Unlock()
	return l.reader
}

// Append publishes the event keyed by link id so one link's clicks land on
// one partition.
func (l *ClickLog) Append(ctx context.Context, event events.ClickEvent) error {
	raw, err := events.Encode(event)
	if err != nil {
		return err
	}

	ctx, span := telemetry.Start(ctx, "kafka.publish.click",
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", l.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("messaging.message.id", event.EventID),
	)
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	err = l.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.LinkID),
		Value:   raw,
		Time:    event.Timestamp.UTC(),
		Headers: carrierToKafkaHeaders(carrier),
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// DrainUpTo fetches until n messages are read or the topic goes quiet for
// maxWait, then commits everything fetched.
func (l *ClickLog) DrainUpTo(ctx context.Context, n int) ([]events.ClickEvent, error) {
	if n <= 0 {
		return nil, nil
	}

	reader := l.consumer()
	fetched := make([]kafka.Message, 0, n)
	out := make([]events.ClickEvent, 0, n)
	for len(fetched) < n {
		fetchCtx, cancel := context.WithTimeout(ctx, l.maxWait)
		msg, err := reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			if len(fetched) == 0 {
				return nil, err
			}
			logger.Warn("kafka fetch interrupted, committing partial drain", zap.Error(err), zap.Int("fetched", len(fetched)))
			break
		}
		fetched = append(fetched, msg)

		e, err := events.Decode(msg.Value)
		if err != nil {
			logger.Warn("discarding undecodable click event",
				zap.Error(err),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			continue
		}
		out = append(out, e)
	}

	if len(fetched) > 0 {
		if err := reader.CommitMessages(context.WithoutCancel(ctx), fetched...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Inspect reports consumer lag as the approximate length. The age of the
// oldest entry is not observable without fetching it, so it is left zero.
// Before the first drain there is no group membership and no lag to report.
func (l *ClickLog) Inspect(context.Context) (clicks.LogPosition, error) {
	reader := l.openedReader()
	if reader == nil {
		return clicks.LogPosition{}, nil
	}
	return clicks.LogPosition{ApproxLength: max(reader.Stats().Lag, 0)}, nil
}

func (l *ClickLog) Close() error {
	err := l.writer.Close()
	if reader := l.openedReader(); reader != nil {
		err = errors.Join(err, reader.Close())
	}
	return err
}

func carrierToKafkaHeaders(carrier propagation.MapCarrier) []kafka.Header {
	headers := make([]kafka.Header, 0, len(carrier))
	for key, value := range carrier {
		if strings.TrimSpace(value) == "" {
			continue
		}
		headers = append(headers, kafka.Header{
			Key:   key,
			Value: []byte(value),
		})
	}
	return headers
}
