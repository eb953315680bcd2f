// Package queue 提供串行 FIFO 任务队列：单 worker，一次只有一个任务在飞，
// 任务完成之间插入固定停顿。完成顺序与入队顺序一致。
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay 两个任务完成之间的默认停顿。
const DefaultDelay = 100 * time.Millisecond

type taskResult[T any] struct {
	val T
	err error
}

// 任务状态：pending → running，或 pending → abandoned（排队中被取消）。
const (
	statePending int32 = iota
	stateRunning
	stateAbandoned
)

type task[T any] struct {
	ctx   context.Context
	fn    func(context.Context) (T, error)
	done  chan taskResult[T]
	state atomic.Int32
}

// Queue 串行任务队列。零值不可用，使用 New 创建。
type Queue[T any] struct {
	mu      sync.Mutex
	pending []*task[T]
	running bool
	delay   time.Duration
	logger  *zap.Logger
}

// New 创建队列。delay <= 0 时使用 DefaultDelay。
func New[T any](delay time.Duration, logger *zap.Logger) *Queue[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue[T]{
		delay:  delay,
		logger: logger.With(zap.String("component", "queue")),
	}
}

// Len 返回当前排队中（未开始）的任务数。
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Enqueue 将任务追加到队尾并阻塞等待其完成。
//
// worker 空闲时由本次调用惰性启动；已在运行时新任务只是加入列表。
// 任务尚未开始前 ctx 被取消的话，Enqueue 立即返回 ctx.Err()，
// worker 之后会跳过该任务，在飞任务不受影响。任务一旦开始，
// Enqueue 等待其完成（fn 自身通过 ctx 感知取消）。
func (q *Queue[T]) Enqueue(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	t := &task[T]{
		ctx:  ctx,
		fn:   fn,
		done: make(chan taskResult[T], 1),
	}

	q.mu.Lock()
	q.pending = append(q.pending, t)
	startWorker := !q.running
	if startWorker {
		q.running = true
	}
	q.mu.Unlock()

	if startWorker {
		go q.work()
	}

	select {
	case r := <-t.done:
		return r.val, r.err
	case <-ctx.Done():
		if t.state.CompareAndSwap(statePending, stateAbandoned) {
			var zero T
			return zero, ctx.Err()
		}
		// 已开始执行，等待完成。
		r := <-t.done
		return r.val, r.err
	}
}

func (q *Queue[T]) work() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if !t.state.CompareAndSwap(statePending, stateRunning) {
			// 排队期间已被放弃。
			continue
		}

		val, err := t.fn(t.ctx)
		t.done <- taskResult[T]{val: val, err: err}

		time.Sleep(q.delay)
	}
}
