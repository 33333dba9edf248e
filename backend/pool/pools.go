package pool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// BufferPool hands out fixed size copy buffers.
type BufferPool struct {
	bufferSize int
	bufferPool sync.Pool
}

func NewBufferPool(bufferSize int) *BufferPool {
	if bufferSize <= 0 {
		bufferSize = 1 << 20
	}
	return &BufferPool{
		bufferSize: bufferSize,
		bufferPool: sync.Pool{
			New: func() any {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

func (bp *BufferPool) GetBuffer() []byte {
	return *(bp.bufferPool.Get().(*[]byte))
}

func (bp *BufferPool) PutBuffer(buffer []byte) {
	if cap(buffer) < bp.bufferSize {
		return
	}
	buffer = buffer[:bp.bufferSize]
	bp.bufferPool.Put(&buffer)
}

// WorkerPool fans tasks pushed on Ingress out to a fixed set of workers.
type WorkerPool[T any] struct {
	ingressChan chan T
	errorChan   chan error

	wg sync.WaitGroup

	maxWorker int
	processed atomic.Int64
}

func NewWorkerPool[T any](maxWorkers, queueSize int) *WorkerPool[T] {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &WorkerPool[T]{
		ingressChan: make(chan T, queueSize),
		errorChan:   make(chan error, queueSize),
		maxWorker:   maxWorkers,
	}
}

// Run blocks until the ingress channel is closed and drained, or ctx is done.
func (wp *WorkerPool[T]) Run(ctx context.Context, handler func(context.Context, T) error) {
	for i := 0; i < wp.maxWorker; i++ {
		wp.startWorker(ctx, handler)
	}
	wp.wg.Wait()
	close(wp.errorChan)
}

func (wp *WorkerPool[T]) startWorker(ctx context.Context, handler func(context.Context, T) error) {
	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case task, ok := <-wp.ingressChan:
				if !ok {
					return
				}
				if err := handler(ctx, task); err != nil {
					wp.PublishError(err)
				}
				wp.processed.Add(1)
			}
		}
	}()
}

func (wp *WorkerPool[T]) Ingress() chan<- T {
	return wp.ingressChan
}

func (wp *WorkerPool[T]) CloseIngress() {
	close(wp.ingressChan)
}

// Errors is closed once Run returns.
func (wp *WorkerPool[T]) Errors() <-chan error {
	return wp.errorChan
}

func (wp *WorkerPool[T]) Processed() int64 {
	return wp.processed.Load()
}

func (wp *WorkerPool[T]) PublishError(err error) {
	select {
	case wp.errorChan <- err:
	default:
	}
}
