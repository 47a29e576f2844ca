package runtime

import (
	"time"
)

// defaultHeartbeatInterval is how often the monitor reads the FUSE
// view to keep it alive while a runtime has live processes (
// "sends periodic 'heartbeat' reads into the FUSE view").
const defaultHeartbeatInterval = 5 * time.Second

// Teardown is invoked once every process in a runtime has exited
// once detected.
type Teardown func() error

// Heartbeat performs one keep-alive read against a runtime's mounted
// view. A FUSE-backed runtime implements this as a stat/read against
// its mountpoint; an overlay-backed runtime is a no-op (the kernel
// needs no help keeping a real mount alive).
type Heartbeat func() error

// MonitorOptions configures a Monitor's polling cadence.
type MonitorOptions struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
}

func (o MonitorOptions) withDefaults() MonitorOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = defaultHeartbeatInterval
	}
	return o
}

// Monitor watches a runtime's process set and runs Teardown once it is
// empty. Platform-specific process enumeration is provided by
// newProcessWatcher (monitor_linux.go / monitor_other.go).
type Monitor struct {
	watcher  processWatcher
	hb       Heartbeat
	teardown Teardown
	opts     MonitorOptions

	stop chan struct{}
	done chan struct{}
}

// processWatcher reports whether any process tracked for a runtime is
// still alive.
type processWatcher interface {
	AnyAlive() (bool, error)
}

// NewMonitor returns a Monitor for the runtime identified by ownerPID
// (the first process entered into it), invoking hb on each heartbeat
// tick and teardown once every tracked process has exited.
func NewMonitor(ownerPID int, hb Heartbeat, teardown Teardown, opts MonitorOptions) *Monitor {
	return &Monitor{
		watcher:  newProcessWatcher(ownerPID),
		hb:       hb,
		teardown: teardown,
		opts:     opts.withDefaults(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the monitor loop in a new goroutine that waits for all
// processes in the runtime to exit.
func (m *Monitor) Start() {
	go m.run()
}

// Stop requests the monitor loop exit without running teardown (used
// when a runtime is being deleted through an explicit command rather
// than discovered by the monitor itself).
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) run() {
	defer close(m.done)

	pollTicker := time.NewTicker(m.opts.PollInterval)
	defer pollTicker.Stop()
	hbTicker := time.NewTicker(m.opts.HeartbeatInterval)
	defer hbTicker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-hbTicker.C:
			if m.hb != nil {
				m.hb()
			}
		case <-pollTicker.C:
			alive, err := m.watcher.AnyAlive()
			if err != nil {
				continue
			}
			if !alive {
				if m.teardown != nil {
					m.teardown()
				}
				return
			}
		}
	}
}
