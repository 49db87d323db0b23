package events

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/zap"
)

// StdoutWriter prints every event as one JSON line. Used when no broker is configured.
type StdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewStdoutWriter() *StdoutWriter {
	return NewLineWriter(os.Stdout)
}

func NewLineWriter(out io.Writer) *StdoutWriter {
	return &StdoutWriter{out: out}
}

func (s *StdoutWriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	line, err := json.Marshal(struct {
		Topic string            `json:"topic"`
		Event cloudevents.Event `json:"event"`
	}{Topic: topic, Event: e})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(append(line, '\n')); err != nil {
		return err
	}

	zap.S().Named("stdout_writer").Debugw("event written", "type", e.Type(), "id", e.ID(), "topic", topic)
	return nil
}

func (s *StdoutWriter) Close(_ context.Context) error {
	return nil
}
