package command

import "sync"

// Queue is the FIFO of commands waiting for the next simulation tick.
// Ingress paths push; the tick loop pops one at a time.
type Queue struct {
	mu    sync.Mutex
	items []Command
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a command to the back of the queue.
func (q *Queue) Push(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, cmd)
}

// Pop removes and returns the oldest command. ok is false when the queue is empty.
func (q *Queue) Pop() (cmd Command, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Command{}, false
	}
	cmd = q.items[0]
	q.items[0] = Command{}
	q.items = q.items[1:]
	return cmd, true
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
