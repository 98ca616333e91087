package fifoqueue

import (
	"errors"
	"sync"

	"github.com/gammazero/deque"
)

// Queue is a variable size synchronized FIFO queue. Any number of writers and readers
type Queue[T any] struct {
	mutex  sync.Mutex
	d      *deque.Deque[T]
	notify chan struct{}
	closed bool
}

var ErrClosed = errors.New("fifoqueue: queue is closed")

func New[T any]() *Queue[T] {
	return &Queue[T]{
		d:      new(deque.Deque[T]),
		notify: make(chan struct{}, 1),
	}
}

// Write pushes element to the back of the queue
func (q *Queue[T]) Write(elem T) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.d.PushBack(elem)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Close closes the queue for writing. Readers receive remaining elements, then the queue reports end
func (q *Queue[T]) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.notify)
}

func (q *Queue[T]) IsClosed() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.closed
}

// readBatch blocks until at least one element is available or the queue is closed and empty.
// Returns up to maxBatch elements in the order of writing
func (q *Queue[T]) readBatch(maxBatch int) ([]T, bool) {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	for {
		q.mutex.Lock()
		if n := q.d.Len(); n > 0 {
			if n > maxBatch {
				n = maxBatch
			}
			ret := make([]T, n)
			for i := range ret {
				ret[i] = q.d.PopFront()
			}
			if q.d.Len() > 0 && !q.closed {
				// wake up another reader
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			q.mutex.Unlock()
			return ret, true
		}
		closed := q.closed
		q.mutex.Unlock()

		if closed {
			return nil, false
		}
		<-q.notify
	}
}

func (q *Queue[T]) read() (T, bool) {
	ret, ok := q.readBatch(1)
	if !ok {
		var nilT T
		return nilT, false
	}
	return ret[0], true
}

// Consume reads all elements of the queue until it is closed and empty
func (q *Queue[T]) Consume(fun func(elem T)) {
	for {
		e, ok := q.read()
		if !ok {
			break
		}
		fun(e)
	}
}

// ConsumeBatches reads elements in batches of up to maxBatch until the queue is closed and empty.
// A batch contains whatever was buffered at the moment of reading, it is never waited to be filled
func (q *Queue[T]) ConsumeBatches(maxBatch int, fun func(batch []T)) {
	for {
		batch, ok := q.readBatch(maxBatch)
		if !ok {
			break
		}
		fun(batch)
	}
}

// Len returns number of elements in the queue. Non-deterministic
func (q *Queue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.d.Len()
}
