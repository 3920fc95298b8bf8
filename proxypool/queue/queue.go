// Package queue 实现待探测候选代理的线程安全 FIFO 队列。
package queue

import (
	"context"
	"sync"
)

// Queue 是一个允许重复元素的 FIFO 队列，支持阻塞与非阻塞出队。
type Queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []string
	head  int
}

func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put 追加一个候选，不会阻塞。
func (q *Queue) Put(candidate string) {
	q.mu.Lock()
	q.items = append(q.items, candidate)
	q.mu.Unlock()
	q.cond.Signal()
}

// PutAll appends candidates in order and wakes every waiting consumer.
func (q *Queue) PutAll(candidates []string) {
	if len(candidates) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, candidates...)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Size 返回当前队列长度。
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// TryGet returns the oldest candidate, or false when the queue is empty.
func (q *Queue) TryGet() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.head {
		return "", false
	}
	return q.pop(), true
}

// Get 阻塞直到有候选可取，或 ctx 被取消。
func (q *Queue) Get(ctx context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == q.head {
		stop := context.AfterFunc(ctx, func() {
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		})
		defer stop()
	}

	for len(q.items) == q.head {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		q.cond.Wait()
	}
	return q.pop(), nil
}

// pop 必须在持有 mu 时调用。
func (q *Queue) pop() string {
	item := q.items[q.head]
	q.items[q.head] = ""
	q.head++
	// 已消费的前缀超过一半时压缩底层数组
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	} else if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return item
}
