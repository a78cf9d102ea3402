package realtime

// pubSub is a bipartite subscription graph between subscribers S and topics
// T. Every edge is stored in both indices; all mutating methods keep the two
// sides consistent. The zero value is not usable, construct with newPubSub.
//
// pubSub itself is not goroutine safe. The Broker owns one and serializes
// access to it.
type pubSub[S comparable, T comparable] struct {
	subscribers map[S]map[T]struct{}
	topics      map[T]map[S]struct{}
}

func newPubSub[S comparable, T comparable]() *pubSub[S, T] {
	return &pubSub[S, T]{
		subscribers: make(map[S]map[T]struct{}),
		topics:      make(map[T]map[S]struct{}),
	}
}

// sub adds the edge (subscriber, topic). Idempotent.
func (p *pubSub[S, T]) sub(subscriber S, topic T) {
	if _, ok := p.subscribers[subscriber]; !ok {
		p.subscribers[subscriber] = make(map[T]struct{})
	}
	p.subscribers[subscriber][topic] = struct{}{}

	if _, ok := p.topics[topic]; !ok {
		p.topics[topic] = make(map[S]struct{})
	}
	p.topics[topic][subscriber] = struct{}{}
}

// unsub removes one edge. No-op if absent. Empty index entries are deleted
// so long-lived processes do not accumulate dead keys.
func (p *pubSub[S, T]) unsub(subscriber S, topic T) {
	if topics, ok := p.subscribers[subscriber]; ok {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(p.subscribers, subscriber)
		}
	}
	if subs, ok := p.topics[topic]; ok {
		delete(subs, subscriber)
		if len(subs) == 0 {
			delete(p.topics, topic)
		}
	}
}

// unsubAll removes every edge of the subscriber from both indices. Safe to
// call for an unknown subscriber, and calling it twice is a no-op the second
// time.
func (p *pubSub[S, T]) unsubAll(subscriber S) {
	topics, ok := p.subscribers[subscriber]
	if !ok {
		return
	}
	for topic := range topics {
		if subs, ok := p.topics[topic]; ok {
			delete(subs, subscriber)
			if len(subs) == 0 {
				delete(p.topics, topic)
			}
		}
	}
	delete(p.subscribers, subscriber)
}

// subsOf returns the subscribers of a topic. The returned slice is a copy.
func (p *pubSub[S, T]) subsOf(topic T) []S {
	subs, ok := p.topics[topic]
	if !ok {
		return nil
	}
	out := make([]S, 0, len(subs))
	for s := range subs {
		out = append(out, s)
	}
	return out
}

// topicsOf returns the topics a subscriber is subscribed to.
func (p *pubSub[S, T]) topicsOf(subscriber S) []T {
	topics, ok := p.subscribers[subscriber]
	if !ok {
		return nil
	}
	out := make([]T, 0, len(topics))
	for t := range topics {
		out = append(out, t)
	}
	return out
}
