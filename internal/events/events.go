// Package events carries the domain-stack analytics/catalog pipeline
// (SPEC_FULL.md §4.14): index-writer completions and search executions,
// published to Kafka off the hot path and consumed downstream by the
// mailbox catalog.
package events

import (
	"context"
	"log/slog"
	"time"

	"mboxsearch/internal/ids"
	pkgkafka "mboxsearch/pkg/kafka"
	"mboxsearch/pkg/resilience"
)

// publishTimeout bounds a single Kafka publish call so a stalled broker
// connection can't wedge the collector's publish loop indefinitely.
const publishTimeout = 5 * time.Second

// EventType distinguishes the two topics this package feeds.
type EventType string

const (
	TypeIndexComplete  EventType = "index.complete"
	TypeSearchExecuted EventType = "search.executed"
)

// IndexComplete is published once per document write that committed
// successfully (indexwriter.Writer.Write's Publisher hook).
type IndexComplete struct {
	Type       EventType `json:"type"`
	Mailbox    string    `json:"mailbox"`
	IndexedID  string    `json:"indexed_id"`
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
}

// SearchExecuted is published once per completed search request,
// regardless of whether the result came from cache.
type SearchExecuted struct {
	Type        EventType `json:"type"`
	Mailboxes   []string  `json:"mailboxes"`
	ResultCount int       `json:"result_count"`
	CacheHit    bool      `json:"cache_hit"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}

// Collector buffers events in a bounded channel and publishes them to
// Kafka off the caller's goroutine. Unlike the teacher's analytics
// collector, which drops the newest event when the buffer is full, this
// collector drops the OLDEST buffered event instead (SPEC_FULL.md §5):
// for a catalog that's read as an approximate, eventually-consistent
// count, a fresher event arriving is more useful than a stale one sitting
// queued behind it.
type Collector struct {
	producer *pkgkafka.Producer
	indexCh  chan pkgkafka.Event
	logger   *slog.Logger
	done     chan struct{}
}

// NewCollector returns a Collector publishing through producer, buffering
// up to bufferSize events in one channel shared by both event types
// before dropping the oldest.
func NewCollector(producer *pkgkafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &Collector{
		producer: producer,
		indexCh:  make(chan pkgkafka.Event, bufferSize),
		logger:   slog.Default().With("component", "events-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the background publish loop. It runs until ctx is
// cancelled, at which point it drains whatever remains buffered with a
// short best-effort deadline.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.indexCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drain()
				return
			}
		}
	}()
	c.logger.Info("events collector started", "buffer_size", cap(c.indexCh))
}

// Publish implements indexwriter.Publisher, feeding an IndexComplete
// event for the just-committed document.
func (c *Collector) Publish(mailbox string, id ids.ID, sequence uint64) {
	c.enqueue(pkgkafka.Event{
		Key: mailbox,
		Value: IndexComplete{
			Type:      TypeIndexComplete,
			Mailbox:   mailbox,
			IndexedID: id.String(),
			Sequence:  sequence,
			Timestamp: id.Time(),
		},
	})
}

// TrackSearch enqueues a SearchExecuted event.
func (c *Collector) TrackSearch(event SearchExecuted) {
	event.Type = TypeSearchExecuted
	c.enqueue(pkgkafka.Event{Key: "search", Value: event})
}

// Close stops accepting new events and waits for the publish loop to
// finish flushing whatever is buffered.
func (c *Collector) Close() {
	close(c.indexCh)
	<-c.done
}

func (c *Collector) enqueue(event pkgkafka.Event) {
	select {
	case c.indexCh <- event:
		return
	default:
	}
	// Buffer full: drop the oldest queued event to make room for this
	// one, rather than dropping the event we were just asked to enqueue.
	select {
	case dropped := <-c.indexCh:
		c.logger.Warn("events buffer full, dropping oldest", "dropped_key", dropped.Key)
	default:
	}
	select {
	case c.indexCh <- event:
	default:
		c.logger.Warn("events buffer still full after eviction, dropping new event", "key", event.Key)
	}
}

func (c *Collector) publish(ctx context.Context, event pkgkafka.Event) {
	err := resilience.WithTimeout(ctx, publishTimeout, "kafka-publish", func(timeoutCtx context.Context) error {
		return c.producer.Publish(timeoutCtx, event)
	})
	if err != nil {
		c.logger.Error("failed to publish event", "key", event.Key, "error", err)
	}
}

func (c *Collector) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.indexCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}
