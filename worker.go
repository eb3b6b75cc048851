package flock

import (
	"sync"

	"github.com/flocklib/flock/internal/queue"
)

// workerHandle owns one worker goroutine's lifecycle: its own queue
// participant (hazard record + retirement batch), its last-observed wake
// sequence, and the WaitGroup the pool joins on Close.
type workerHandle struct {
	id   int
	pool *Pool
	wg   sync.WaitGroup
}

func newWorkerHandle(id int, p *Pool) *workerHandle {
	return &workerHandle{id: id, pool: p}
}

func (w *workerHandle) start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *workerHandle) join() {
	w.wg.Wait()
}

// loop is the drain-then-sleep cycle: run every task the queue will give
// up without blocking, then go idle on the wake coordinator until either
// more work arrives or stop is requested. A worker never busy-spins; the
// only blocking wait is Coordinator.Wait, which is itself immune to the
// lost-wakeup race a plain "check empty, then sleep" loop would have.
func (w *workerHandle) loop() {
	defer w.wg.Done()

	p := w.pool
	logWorkerStart(p.config.Logger, w.id)
	if p.config.OnWorkerStart != nil {
		p.config.OnWorkerStart(w.id)
	}
	defer func() {
		logWorkerStop(p.config.Logger, w.id)
		if p.config.OnWorkerStop != nil {
			p.config.OnWorkerStop(w.id)
		}
	}()

	part, err := p.q.Join()
	if err != nil {
		logFatal(p.config.Logger, w.id, err)
		return
	}
	defer part.Leave()

	lastSeq := p.coord.CurrentSeq()

	for {
		w.drain(part)

		if p.coord.Stopped() && p.q.Empty() {
			return
		}

		newSeq, stopped := p.coord.Wait(lastSeq)
		lastSeq = newSeq
		if stopped && p.q.Empty() {
			return
		}
	}
}

// drain runs every task TryDequeue hands back until the queue reports
// empty, recovering from (and accounting) any task panic so one bad task
// never takes a worker goroutine down with it.
func (w *workerHandle) drain(part *queue.Participant[task]) {
	p := w.pool
	for {
		t, ok := p.q.TryDequeue(part)
		if !ok {
			return
		}
		w.run(t)
		p.completed.Add(1)
	}
}

// run executes a single task with panic recovery. newTask already
// fulfilled the task's Future and re-panicked by the time recover sees
// it here, so this is the pool's single point of panic observability:
// PanicHandler (if any) and structured logging, exactly once per panic.
func (w *workerHandle) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			p := w.pool
			logTaskPanic(p.config.Logger, w.id, r)
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(r)
			}
		}
	}()
	t.run()
}
