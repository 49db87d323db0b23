package events

type ProducerOptions func(e *EventProducer)

func WithOutputTopic(topic string) ProducerOptions {
	return func(e *EventProducer) {
		e.topic = topic
	}
}

func WithSource(source string) ProducerOptions {
	return func(e *EventProducer) {
		e.source = source
	}
}

// WithMaxPending bounds the number of buffered events. Writes fail with
// ErrBufferFull once the bound is reached.
func WithMaxPending(n int) ProducerOptions {
	return func(e *EventProducer) {
		e.buffer = newBuffer(n)
	}
}
