package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ContractMessageKind  string = "lease.events.contract"
	ScrapeJobMessageKind string = "lease.events.scrape"
	defaultTopic         string = "lease.events"
	defaultSource        string = "lease.planner"
	defaultMaxPending    int    = 10000
	closeTimeout                = 5 * time.Second
)

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, topic string, e cloudevents.Event) error
	Close(ctx context.Context) error
}

// EventProducer is a wrapper around a Writer with the buffer.
// It has a buffer to store pending events to not block the caller if the writer takes time to write the event.
type EventProducer struct {
	buffer    *buffer
	notifyCh  chan struct{}
	doneCh    chan struct{}
	stoppedCh chan struct{}
	closeOnce sync.Once
	writer    Writer
	topic     string
	source    string
}

func NewEventProducer(w Writer, opts ...ProducerOptions) *EventProducer {
	ep := &EventProducer{
		buffer:    newBuffer(defaultMaxPending),
		notifyCh:  make(chan struct{}, 1),
		doneCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		writer:    w,
		topic:     defaultTopic,
		source:    defaultSource,
	}

	for _, o := range opts {
		o(ep)
	}

	go ep.run()
	return ep
}

// Write queues an event of the given kind. It never waits for the writer.
func (ep *EventProducer) Write(ctx context.Context, kind string, body io.Reader) error {
	d, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	if err := ep.buffer.PushBack(&message{
		Kind: kind,
		Data: d,
	}); err != nil {
		return err
	}

	// wake up the consumer
	select {
	case ep.notifyCh <- struct{}{}:
	default:
	}

	return nil
}

func (ep *EventProducer) WriteContractEvent(ctx context.Context, e ContractEvent) error {
	return ep.writeJSON(ctx, ContractMessageKind, e)
}

func (ep *EventProducer) WriteScrapeJobEvent(ctx context.Context, e ScrapeJobEvent) error {
	return ep.writeJSON(ctx, ScrapeJobMessageKind, e)
}

func (ep *EventProducer) writeJSON(ctx context.Context, kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ep.Write(ctx, kind, bytes.NewReader(data))
}

// Pending returns the number of buffered events not yet handed to the writer.
func (ep *EventProducer) Pending() int {
	return ep.buffer.Size()
}

// Close flushes the buffered events and closes the writer.
func (ep *EventProducer) Close() error {
	var closeErr error
	ep.closeOnce.Do(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		close(ep.doneCh)

		g, ctx := errgroup.WithContext(closeCtx)
		g.Go(func() error {
			select {
			case <-ep.stoppedCh:
			case <-ctx.Done():
				zap.S().Named("event_producer").Warnw("events dropped on close", "pending", ep.buffer.Size())
			}
			return ep.writer.Close(ctx)
		})
		if err := g.Wait(); err != nil {
			zap.S().Named("event_producer").Errorf("event producer closed with error: %s", err)
			closeErr = err
			return
		}

		zap.S().Named("event_producer").Info("event producer closed")
	})
	return closeErr
}

func (ep *EventProducer) run() {
	defer close(ep.stoppedCh)

	for {
		ep.flush()

		select {
		case <-ep.notifyCh:
		case <-ep.doneCh:
			ep.flush()
			return
		}
	}
}

func (ep *EventProducer) flush() {
	for msg := ep.buffer.Pop(); msg != nil; msg = ep.buffer.Pop() {
		e := cloudevents.NewEvent()
		e.SetID(uuid.NewString())
		e.SetSource(ep.source)
		e.SetType(msg.Kind)
		e.SetTime(time.Now())
		_ = e.SetData(*cloudevents.StringOfApplicationJSON(), msg.Data)

		if err := ep.writer.Write(context.TODO(), ep.topic, e); err != nil {
			zap.S().Named("event_producer").Errorw("failed to send message", "error", err, "event", e)
		}
	}
}
