package task

import (
	"context"
	"sync"
	"time"
)

const defaultSchedulerInterval = time.Hour

// Job is one unit of periodic background work.
type Job func(context.Context)

// Scheduler runs a Job on a fixed interval in its own goroutine until stopped.
type Scheduler struct {
	interval time.Duration
	job      Job
	pending  chan struct{}

	stateMutex sync.Mutex
	stop       context.CancelFunc
	stopped    chan struct{}
}

// NewScheduler builds a stopped Scheduler; a non-positive interval runs the job hourly.
func NewScheduler(interval time.Duration, job Job) *Scheduler {
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	return &Scheduler{
		interval: interval,
		job:      job,
		pending:  make(chan struct{}, 1),
	}
}

// Start launches the loop once; later calls are ignored until Stop.
func (scheduler *Scheduler) Start(ctx context.Context) {
	if scheduler == nil || scheduler.job == nil {
		return
	}
	scheduler.stateMutex.Lock()
	defer scheduler.stateMutex.Unlock()
	if scheduler.stop != nil {
		return
	}
	loopContext, stop := context.WithCancel(ctx)
	scheduler.stop = stop
	scheduler.stopped = make(chan struct{})
	go scheduler.loop(loopContext, scheduler.stopped)
}

// RunNow queues an immediate run. Requests made while one is queued collapse into it.
func (scheduler *Scheduler) RunNow() {
	if scheduler == nil {
		return
	}
	select {
	case scheduler.pending <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for an in-flight run to return.
func (scheduler *Scheduler) Stop() {
	if scheduler == nil {
		return
	}
	scheduler.stateMutex.Lock()
	stop := scheduler.stop
	stopped := scheduler.stopped
	scheduler.stop = nil
	scheduler.stopped = nil
	scheduler.stateMutex.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-stopped
}

// Running reports whether the loop is active.
func (scheduler *Scheduler) Running() bool {
	if scheduler == nil {
		return false
	}
	scheduler.stateMutex.Lock()
	defer scheduler.stateMutex.Unlock()
	return scheduler.stop != nil
}

func (scheduler *Scheduler) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(scheduler.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-scheduler.pending:
			scheduler.job(ctx)
			ticker.Reset(scheduler.interval)
		case <-ticker.C:
			scheduler.job(ctx)
		}
	}
}
