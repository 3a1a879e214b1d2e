package proxy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yllada/nwam-agent/common"
	"github.com/yllada/nwam-agent/daemon"
)

// ListenerConfig tunes connection retries.
type ListenerConfig struct {
	// ConnectRetryInterval is the first wait while the daemon service is
	// offline. It doubles up to ConnectRetryMax.
	ConnectRetryInterval time.Duration
	ConnectRetryMax      time.Duration
	// ReconnectInterval is the wait between reconnect attempts after a
	// failed wait for event.
	ReconnectInterval time.Duration
	// ReconnectAttempts bounds the reconnect loop. Zero means unbounded.
	ReconnectAttempts int
	// QueueWarnDepth logs a warning when the dispatcher falls this far
	// behind.
	QueueWarnDepth int
}

// DefaultListenerConfig returns the stock retry settings.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		ConnectRetryInterval: common.ConnectRetryInterval,
		ConnectRetryMax:      common.ConnectRetryMax,
		ReconnectInterval:    common.ReconnectInterval,
		QueueWarnDepth:       common.QueueWarnDepth,
	}
}

// Listener blocks on the daemon event stream and hands every event to the
// dispatcher queue. It never looks past an event's type.
type Listener struct {
	client daemon.Client
	queue  *eventQueue
	cfg    ListenerConfig
	log    common.Logger

	stopped  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	seq        atomic.Uint64
	events     atomic.Uint64
	reconnects atomic.Uint64

	// sleep waits d or until ctx ends. It returns false on cancellation.
	sleep func(ctx context.Context, d time.Duration) bool
}

func newListener(client daemon.Client, queue *eventQueue, cfg ListenerConfig, log common.Logger) *Listener {
	if cfg.ConnectRetryInterval <= 0 {
		cfg.ConnectRetryInterval = common.ConnectRetryInterval
	}
	if cfg.ConnectRetryMax < cfg.ConnectRetryInterval {
		cfg.ConnectRetryMax = cfg.ConnectRetryInterval
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = common.ReconnectInterval
	}
	return &Listener{
		client: client,
		queue:  queue,
		cfg:    cfg,
		log:    log,
		done:   make(chan struct{}),
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Start runs the listener on its own goroutine.
func (l *Listener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go l.run(ctx)
}

// Stop raises the stop flag and waits for the listener goroutine to return.
// Nothing is enqueued after Stop returns.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.stopped.Store(true)
		if l.cancel != nil {
			l.cancel()
		} else {
			close(l.done)
		}
	})
	<-l.done
}

func (l *Listener) shouldStop(ctx context.Context) bool {
	return l.stopped.Load() || ctx.Err() != nil
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)
	defer l.client.Close()

	if !l.connect(ctx) {
		return
	}
	l.enqueue(ctx, daemon.Synthetic(daemon.EventDaemonActive, "connected to daemon"))

	for !l.shouldStop(ctx) {
		ev, err := l.client.WaitForEvent(ctx)
		if err != nil {
			if l.shouldStop(ctx) {
				return
			}
			l.log.Warn("wait for event failed: %v", err)
			l.enqueue(ctx, daemon.Synthetic(daemon.EventDaemonInactive, err.Error()))
			if !l.reconnect(ctx) {
				return
			}
			l.enqueue(ctx, daemon.Synthetic(daemon.EventDaemonActive, "reconnected to daemon"))
			continue
		}

		l.enqueue(ctx, ev)

		if ev.Type == daemon.EventShutdown {
			// clean shutdown: drop the connection quietly and wait for
			// the daemon to come back
			l.log.Info("daemon shut down")
			l.client.Close()
			if !l.connect(ctx) {
				return
			}
			l.enqueue(ctx, daemon.Synthetic(daemon.EventDaemonActive, "daemon restarted"))
		}
	}
}

// connect waits for the daemon service with exponential backoff.
func (l *Listener) connect(ctx context.Context) bool {
	delay := l.cfg.ConnectRetryInterval
	for attempt := 1; ; attempt++ {
		if l.shouldStop(ctx) {
			return false
		}

		online, err := l.client.ServiceOnline(ctx)
		switch {
		case err != nil:
			l.log.Debug("service check failed (attempt %d): %v", attempt, err)
		case !online:
			l.log.Debug("daemon service not online (attempt %d)", attempt)
		default:
			if err = l.client.Connect(ctx); err == nil {
				return true
			}
			l.log.Warn("connect failed (attempt %d): %v", attempt, err)
		}

		if !l.sleep(ctx, delay) {
			return false
		}
		delay *= 2
		if delay > l.cfg.ConnectRetryMax {
			delay = l.cfg.ConnectRetryMax
		}
	}
}

// reconnect tries once immediately, then sleeps between attempts until it
// succeeds, runs out of attempts or is stopped.
func (l *Listener) reconnect(ctx context.Context) bool {
	l.client.Close()
	for attempt := 1; ; attempt++ {
		if l.shouldStop(ctx) {
			return false
		}
		l.reconnects.Add(1)
		err := l.client.Connect(ctx)
		if err == nil {
			l.log.Info("reconnected after %d attempt(s)", attempt)
			return true
		}
		l.log.Debug("reconnect attempt %d: %v", attempt, err)

		if l.cfg.ReconnectAttempts > 0 && attempt >= l.cfg.ReconnectAttempts {
			l.log.Error("giving up after %d reconnect attempts", attempt)
			return false
		}
		if !l.sleep(ctx, l.cfg.ReconnectInterval) {
			return false
		}
	}
}

func (l *Listener) enqueue(ctx context.Context, ev *daemon.Event) {
	if l.stopped.Load() {
		return
	}
	env := &Envelope{ID: uuid.New(), Seq: l.seq.Add(1), Event: ev}
	if err := l.queue.Push(ctx, env); err != nil {
		l.log.Debug("dropping %s: %v", ev.Type, err)
		return
	}
	l.events.Add(1)
	if n := l.queue.Len(); l.cfg.QueueWarnDepth > 0 && n == l.cfg.QueueWarnDepth {
		l.log.Warn("event queue depth %d, dispatcher is falling behind", n)
	}
}
