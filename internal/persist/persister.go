// Package persist writes the board to session storage after user mutations.
//
// A Persister is registered as a store observer. Observe never blocks: it only
// marks the state dirty, and a background goroutine saves the list as it is
// at write time. Bursts of mutations collapse into a single write. Hydration
// events are ignored because they carry what storage already holds.
package persist

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taskhub/internal/manager"
	"taskhub/internal/models"
	"taskhub/internal/storage"
)

var writeCount = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "taskhub_persist_writes_total",
		Help: "Total number of deferred board writes",
	},
)

// Source is what the persister snapshots on each write.
type Source interface {
	GetAllTasks() []models.Task
}

type Persister struct {
	source  Source
	storage *storage.SessionStorage

	dirty   chan struct{}
	flushes chan chan struct{}
	stop    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

// New starts the write loop. Call Close to stop it.
func New(source Source, st *storage.SessionStorage) *Persister {
	p := &Persister{
		source:  source,
		storage: st,
		dirty:   make(chan struct{}, 1),
		flushes: make(chan chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

// Observe is a manager.Observer.
func (p *Persister) Observe(ev manager.Event) {
	if ev.Action == manager.ActionHydrate || !p.storage.Available() {
		return
	}
	select {
	case p.dirty <- struct{}{}:
	default:
		// a write is already pending and will pick up this change
	}
}

// Flush blocks until every change observed so far has been written.
func (p *Persister) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case p.flushes <- reply:
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes any pending change and stops the loop. It is safe to call twice.
func (p *Persister) Close(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.stop) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) loop() {
	defer close(p.done)
	for {
		select {
		case <-p.dirty:
			p.write()
		case reply := <-p.flushes:
			p.drain()
			close(reply)
		case <-p.stop:
			p.drain()
			return
		}
	}
}

func (p *Persister) drain() {
	select {
	case <-p.dirty:
		p.write()
	default:
	}
}

func (p *Persister) write() {
	p.storage.Save(context.Background(), storage.State{Tasks: p.source.GetAllTasks()})
	writeCount.Inc()
}
