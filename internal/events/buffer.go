package events

import (
	"errors"
	"sync"
)

// ErrBufferFull is returned when the producer holds maxSize pending messages.
var ErrBufferFull = errors.New("event buffer is full")

type message struct {
	Kind string
	Data []byte
	prev *message
}

type buffer struct {
	lock    sync.Mutex
	head    *message
	tail    *message
	size    int
	maxSize int
}

// newBuffer returns a FIFO of messages. A maxSize of 0 means unbounded.
func newBuffer(maxSize int) *buffer {
	return &buffer{maxSize: maxSize}
}

func (b *buffer) PushBack(msg *message) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.maxSize > 0 && b.size >= b.maxSize {
		return ErrBufferFull
	}

	if b.head == nil {
		b.head = msg
		b.tail = msg
	} else {
		b.tail.prev = msg
		b.tail = msg
	}
	b.size++

	return nil
}

func (b *buffer) Pop() *message {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.head == nil {
		return nil
	}
	tmp := b.head
	if b.head.prev != nil {
		b.head = b.head.prev
	} else {
		// removing the last one
		b.head = nil
		b.tail = nil
	}
	tmp.prev = nil
	b.size--
	return tmp
}

func (b *buffer) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.size
}
