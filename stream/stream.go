// Package stream fans raw device I/O out to observer taps, such as
// transcript writers. Taps only watch the stream; the expect matcher owns
// the reads.
package stream

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/morganhein/dutcli/logger"
	"github.com/morganhein/dutcli/schema"
)

var log schema.Logger

func init() {
	log = logger.Log
}

type Publisher struct {
	s   map[int]chan schema.StreamEvent
	mut sync.RWMutex
}

func New() *Publisher {
	return &Publisher{
		s: make(map[int]chan schema.StreamEvent, 2),
	}
}

// Subscribe adds another listener to this publisher, chunks to be passed via
// the channel. The id of this subscription is returned, which may be used to
// unsubscribe.
func (p *Publisher) Subscribe(s chan schema.StreamEvent) (id int) {
	p.mut.Lock()
	defer p.mut.Unlock()
	next := 0
	keys := make([]int, 0, len(p.s))
	for k := range p.s {
		keys = append(keys, k)
	}
	if len(keys) > 0 {
		sort.Ints(keys)
		next = keys[len(keys)-1] + 1
	}
	p.s[next] = s
	log.Debug("Subscribing with id ", next)
	return next
}

// Unsubscribe removes the subscription and closes its channel.
func (p *Publisher) Unsubscribe(id int) {
	log.Debug("Unsubscribing id ", id)
	p.mut.Lock()
	defer p.mut.Unlock()
	if ch, ok := p.s[id]; ok {
		delete(p.s, id)
		close(ch)
	}
}

// Publish hands one chunk to every tap. A saturated tap is skipped rather
// than allowed to stall the reader.
func (p *Publisher) Publish(data []byte) {
	p.mut.RLock()
	defer p.mut.RUnlock()
	if len(p.s) == 0 {
		return
	}
	e := schema.StreamEvent{Data: data, Time: time.Now()}
	for _, s := range p.s {
		if len(s) < cap(s) {
			s <- e
		}
	}
}

// Tap subscribes a writer to the publisher and copies every chunk to it
// until Unsubscribe is called with the returned id.
func (p *Publisher) Tap(w io.Writer) (id int) {
	events := make(chan schema.StreamEvent, 64)
	id = p.Subscribe(events)
	go func() {
		for e := range events {
			_, _ = w.Write(e.Data)
		}
	}()
	return id
}
