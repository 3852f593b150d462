package frontier

import (
	"container/heap"
	"sync"
)

// Task is one unit of pending crawl work. Tasks are immutable once pushed.
type Task struct {
	URL      string // normalized absolute URL
	Host     string
	Depth    int
	Referrer string
	Resource string // resource type when the task is an asset check, else empty

	seq uint64
}

// Queue is the crawl frontier: a deduplicated priority queue ordered by depth
// ascending, insertion order within a depth. Push and the visited check are
// one atomic step, so two concurrent pushes of the same URL admit exactly one
// task. Pop blocks until work arrives or the queue is closed.
type Queue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	tasks       taskHeap
	seen        map[string]bool
	maxDepth    int
	nextSeq     uint64
	outstanding int
	closed      bool
}

// New creates a frontier that rejects tasks deeper than maxDepth.
func New(maxDepth int) *Queue {
	q := &Queue{
		seen:     make(map[string]bool),
		maxDepth: maxDepth,
	}
	q.cond = sync.NewCond(&q.mu)

	return q
}

// Push enqueues the task unless its URL was already enqueued in this run,
// its depth exceeds the bound, or the queue is closed. It reports whether
// the task was admitted.
func (q *Queue) Push(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || task.Depth > q.maxDepth || q.seen[task.URL] {
		return false
	}

	q.seen[task.URL] = true
	task.seq = q.nextSeq
	q.nextSeq++

	heap.Push(&q.tasks, task)
	q.cond.Signal()

	return true
}

// Pop removes the shallowest pending task, blocking while the queue is empty
// but open. It returns false once the queue is closed.
func (q *Queue) Pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.tasks) == 0 {
		if q.closed {
			return Task{}, false
		}

		q.cond.Wait()
	}

	task := heap.Pop(&q.tasks).(Task)
	q.outstanding++

	return task, true
}

// Done marks a previously popped task finished. Once nothing is pending and
// nothing is in flight the queue closes itself, releasing every blocked Pop
// caller: the crawl is drained.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.outstanding > 0 {
		q.outstanding--
	}

	if q.outstanding == 0 && len(q.tasks) == 0 && !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
}

// Idle reports whether nothing is pending and nothing is in flight.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.outstanding == 0 && len(q.tasks) == 0
}

// Close wakes all blocked Pop callers and rejects further pushes. Pending
// tasks are discarded. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.tasks = nil
	q.cond.Broadcast()
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Seen reports whether the URL was ever admitted in this run.
func (q *Queue) Seen(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.seen[url]
}

type taskHeap []Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}

	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(Task))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	task := old[n-1]
	*h = old[:n-1]

	return task
}
