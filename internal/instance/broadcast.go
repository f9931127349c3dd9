package instance

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// backlogSize bounds the recent-log-line replay given to new subscribers.
const backlogSize = 200

// broadcaster fans Event out to every current subscriber and keeps a bounded
// backlog of recent log lines so a subscriber that attaches mid-run doesn't
// see a blank pane. Events for a subscriber whose buffer is full are dropped
// rather than allowed to block the instance's event producers; the
// subscriber itself stays subscribed.
type broadcaster struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	nextID  int
	backlog *lru.Cache[int, LogLine]
	seq     int
}

func newBroadcaster() *broadcaster {
	backlog, _ := lru.New[int, LogLine](backlogSize)
	return &broadcaster{
		subs:    make(map[int]chan Event),
		backlog: backlog,
	}
}

// subscribe returns a channel of future events plus an unsubscribe func. The
// channel is buffered; a slow consumer loses events rather than stalling the
// instance.
func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)

	keys := b.backlog.Keys()
	for _, k := range keys {
		line, ok := b.backlog.Get(k)
		if !ok {
			continue
		}
		l := line
		select {
		case ch <- Event{Kind: EventLog, Log: &l}:
		default:
		}
	}

	b.subs[id] = ch
	return ch, func() { b.unsubscribe(id) }
}

func (b *broadcaster) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	if ev.Kind == EventLog && ev.Log != nil {
		b.seq++
		b.backlog.Add(b.seq, *ev.Log)
	}
	subs := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
