package client

import (
	"sync"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/feed"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Observer is told that something it watches changed. It must re-fetch;
// events carry no row data, may repeat and arrive in any order.
type Observer interface {
	OnChange(ev comm.ChangeEvent)
}

// Watcher coalesces change events into a single pending signal, so a
// burst of events costs one re-fetch.
type Watcher struct {
	nc      *nats.Conn
	mu      sync.Mutex
	changed chan struct{}
	sub     *nats.Subscription
}

func NewWatcher(nc *nats.Conn) *Watcher {
	return &Watcher{nc: nc, changed: make(chan struct{}, 1)}
}

func (w *Watcher) OnChange(comm.ChangeEvent) {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Attach moves the watcher to one scope, dropping any previous one.
func (w *Watcher) Attach(scope, scopeID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.detach()
	sub, err := feed.Subscribe(w.nc, feed.Subject(scope, scopeID), w.OnChange)
	if err != nil {
		return err
	}
	w.sub = sub
	return nil
}

func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.detach()
}

func (w *Watcher) detach() {
	if w.sub == nil {
		return
	}
	if err := w.sub.Unsubscribe(); err != nil {
		log.Warnf("unsubscribe %s: %s", w.sub.Subject, err)
	}
	w.sub = nil
}
