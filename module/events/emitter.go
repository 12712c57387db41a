package events

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/module"
)

// Emitter fans events out to subscribers. Every subscriber has its own unbounded mailbox, so
// emitting never blocks on a slow subscriber and each subscriber sees events in emission order.
type Emitter struct {
	log    zerolog.Logger
	source crypto.Address

	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	closed bool
}

var _ module.EventSource = (*Emitter)(nil)

func NewEmitter(log zerolog.Logger, source crypto.Address) *Emitter {
	return &Emitter{
		log:    log.With().Str("component", "events").Logger(),
		source: source,
		subs:   make(map[*subscription]struct{}),
	}
}

// Subscribe returns a subscription to the given kinds, or to every kind if none is given.
func (e *Emitter) Subscribe(kinds ...module.EventKind) module.Subscription {
	s := &subscription{
		emitter: e,
		kinds:   make(map[module.EventKind]struct{}, len(kinds)),
		notify:  make(chan struct{}, 1),
		out:     make(chan module.Event),
		closed:  make(chan struct{}),
	}
	for _, k := range kinds {
		s.kinds[k] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		s.stop()
		close(s.out)
		return s
	}
	e.subs[s] = struct{}{}
	go s.run()
	return s
}

// Emit queues ev for every interested subscriber. The source defaults to the emitter's module.
func (e *Emitter) Emit(ev module.Event) {
	if ev.Source.IsZero() {
		ev.Source = e.source
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for s := range e.subs {
		if s.wants(ev.Kind) {
			s.push(ev)
		}
	}
	e.log.Debug().Str("event", string(ev.Kind)).Int("subscribers", len(e.subs)).Msg("event emitted")
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (e *Emitter) Close() {
	e.mu.Lock()
	subs := e.subs
	e.subs = make(map[*subscription]struct{})
	e.closed = true
	e.mu.Unlock()

	for s := range subs {
		s.stop()
	}
}

func (e *Emitter) remove(s *subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, s)
}

type subscription struct {
	emitter *Emitter
	kinds   map[module.EventKind]struct{}

	mu    sync.Mutex
	queue []module.Event

	notify chan struct{}
	out    chan module.Event
	closed chan struct{}
	once   sync.Once
}

func (s *subscription) Events() <-chan module.Event {
	return s.out
}

func (s *subscription) Close() {
	s.emitter.remove(s)
	s.stop()
}

func (s *subscription) stop() {
	s.once.Do(func() {
		close(s.closed)
	})
}

func (s *subscription) wants(kind module.EventKind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

func (s *subscription) push(ev module.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription) next() (module.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return module.Event{}, false
	}
	ev := s.queue[0]
	s.queue[0] = module.Event{}
	s.queue = s.queue[1:]
	return ev, true
}

// run delivers queued events until the subscription is closed.
func (s *subscription) run() {
	defer close(s.out)
	for {
		select {
		case <-s.closed:
			return
		case <-s.notify:
		}
		for {
			ev, ok := s.next()
			if !ok {
				break
			}
			select {
			case s.out <- ev:
			case <-s.closed:
				return
			}
		}
	}
}
