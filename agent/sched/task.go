/*
Package sched runs periodic background work like expiry sweeps and ledger
polling. A Task owns its own gocron scheduler so that tasks can be started,
stopped and re-timed independently.
*/
package sched

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Task runs fn every interval while it's running. The first run happens one
// interval after Start. Runs never overlap.
type Task struct {
	name string
	fn   func()

	lk       sync.Mutex
	interval time.Duration
	cron     *gocron.Scheduler
}

// New creates a stopped task.
func New(name string, interval time.Duration, fn func()) *Task {
	return &Task{name: name, fn: fn, interval: interval}
}

// Start starts the task. Starting a running task does nothing and returns
// false.
func (t *Task) Start() bool {
	t.lk.Lock()
	defer t.lk.Unlock()

	if t.cron != nil {
		glog.Warningf("%s already running", t.name)
		return false
	}
	if err := t.start(); err != nil {
		glog.Errorf("%s start: %v", t.name, err)
		return false
	}
	glog.V(1).Infof("%s started, interval %v", t.name, t.interval)
	return true
}

func (t *Task) start() (err error) {
	defer err2.Handle(&err)

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	cron.WaitForScheduleAll()
	try.To1(cron.Every(t.interval).Do(t.run))
	cron.StartAsync()
	t.cron = cron
	return nil
}

func (t *Task) run() {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("%s panic: %v", t.name, r)
		}
	}()
	t.fn()
}

// Stop stops the task. Stopping a stopped task does nothing.
func (t *Task) Stop() {
	t.lk.Lock()
	defer t.lk.Unlock()

	t.stop()
}

func (t *Task) stop() {
	if t.cron == nil {
		return
	}
	t.cron.Stop()
	t.cron = nil
	glog.V(1).Infof("%s stopped", t.name)
}

// Restart stops and starts the task.
func (t *Task) Restart() {
	t.lk.Lock()
	defer t.lk.Unlock()

	t.stop()
	if err := t.start(); err != nil {
		glog.Errorf("%s restart: %v", t.name, err)
	}
}

// UpdateInterval sets a new interval. A running task is restarted with it.
func (t *Task) UpdateInterval(d time.Duration) {
	t.lk.Lock()
	defer t.lk.Unlock()

	t.interval = d
	if t.cron == nil {
		return
	}
	t.stop()
	if err := t.start(); err != nil {
		glog.Errorf("%s update interval: %v", t.name, err)
	}
}

func (t *Task) IsRunning() bool {
	t.lk.Lock()
	defer t.lk.Unlock()
	return t.cron != nil
}

func (t *Task) Interval() time.Duration {
	t.lk.Lock()
	defer t.lk.Unlock()
	return t.interval
}

// RunNow runs fn once in the calling goroutine.
func (t *Task) RunNow() {
	t.run()
}
