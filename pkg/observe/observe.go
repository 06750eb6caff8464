// Package observe delivers telemetry observations to consumers that must not
// slow down the read loop.
package observe

import (
	"context"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/itohio/sbpedals/pkg/link"
)

// Sink consumes observations outside the read loop.
type Sink interface {
	Handle(ctx context.Context, o link.Observation) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, o link.Observation) error

// Handle calls f(ctx, o).
func (f SinkFunc) Handle(ctx context.Context, o link.Observation) error {
	return f(ctx, o)
}

// Latest is a replace-latest queue of depth one. Observe never blocks: an
// observation not yet consumed is replaced by the newer one.
type Latest struct {
	name    string
	ch      chan link.Observation
	dropped atomic.Uint64
	log     *log.Entry
}

var _ link.Observer = (*Latest)(nil)

// NewLatest creates an empty queue.
func NewLatest(name string) *Latest {
	return &Latest{
		name: name,
		ch:   make(chan link.Observation, 1),
		log: log.WithFields(log.Fields{"component": "observe", "sink": name}),
	}
}

// Observe enqueues o, dropping an older pending observation if needed.
func (l *Latest) Observe(o link.Observation) {
	for {
		select {
		case l.ch <- o:
			return
		default:
		}
		select {
		case <-l.ch:
			l.dropped.Add(1)
		default:
		}
	}
}

// Name returns the sink name given to NewLatest.
func (l *Latest) Name() string {
	return l.name
}

// Dropped returns how many observations were replaced before being consumed.
func (l *Latest) Dropped() uint64 {
	return l.dropped.Load()
}

// Run feeds sink until ctx is done. Sink errors are logged and do not stop
// delivery.
func (l *Latest) Run(ctx context.Context, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-l.ch:
			if err := sink.Handle(ctx, o); err != nil {
				l.log.WithError(err).Warn("sink failed")
			}
		}
	}
}

type tee []link.Observer

func (t tee) Observe(o link.Observation) {
	for _, obs := range t {
		obs.Observe(o)
	}
}

// Tee returns an observer that forwards to all observers in order.
// Nil observers are skipped.
func Tee(observers ...link.Observer) link.Observer {
	result := make(tee, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			result = append(result, o)
		}
	}
	return result
}
