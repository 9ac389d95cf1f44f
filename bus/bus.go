// bus.go
package bus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of comparable tokens (strings, ints, ...).
// The string tokens "+" and "#" are wildcards in subscription topics:
// "+" matches exactly one level, "#" matches zero or more trailing levels.
type Topic []any

const (
	wildOne = "+"
	wildAll = "#"
)

// T builds a Topic, panicking on non-comparable tokens so mistakes are
// caught at construction rather than deep inside the trie.
func T(parts ...any) Topic {
	for _, p := range parts {
		if p == nil || !reflect.TypeOf(p).Comparable() {
			panic("bus: topic token must be comparable and non-nil")
		}
	}
	return Topic(parts)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	bus   *Bus
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu      sync.RWMutex
	root    *node
	qLen    int
	replyID atomic.Uint64
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// NewMessage builds a message bound for this bus.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// addSubscription inserts a subscription into the trie and delivers
// any retained messages its (possibly wildcard) topic matches.
func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		if n.children == nil {
			n.children = make(map[any]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	collectRetained(b.root, topic, func(m *Message) {
		select {
		case sub.ch <- m:
		default:
		}
	})
}

// collectRetained walks the retained tree against a subscription pattern.
func collectRetained(n *node, pattern Topic, emit func(*Message)) {
	if n == nil {
		return
	}
	if len(pattern) == 0 {
		if n.retained != nil {
			emit(n.retained)
		}
		return
	}
	switch pattern[0] {
	case wildAll:
		emitSubtree(n, emit)
	case wildOne:
		for _, child := range n.children {
			collectRetained(child, pattern[1:], emit)
		}
	default:
		collectRetained(n.children[pattern[0]], pattern[1:], emit)
	}
}

func emitSubtree(n *node, emit func(*Message)) {
	if n.retained != nil {
		emit(n.retained)
	}
	for _, child := range n.children {
		emitSubtree(child, emit)
	}
}

// Publish delivers a message to every subscription whose topic matches,
// then stores or clears the retained copy at the exact topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	matchSubs(b.root, msg.Topic, func(sub *Subscription) {
		select {
		case sub.ch <- msg:
		default:
			// drop oldest if queue full
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- msg:
			default:
			}
		}
	})

	if msg.Retained {
		b.storeRetained(msg)
	}
}

// matchSubs visits subscriptions matching a concrete topic, honoring
// "+" and "#" wildcards in subscription paths.
func matchSubs(n *node, toks Topic, visit func(*Subscription)) {
	if n == nil {
		return
	}
	if hash, ok := n.children[wildAll]; ok {
		for _, sub := range hash.subs {
			visit(sub)
		}
	}
	if len(toks) == 0 {
		for _, sub := range n.subs {
			visit(sub)
		}
		return
	}
	if n.children == nil {
		return
	}
	matchSubs(n.children[toks[0]], toks[1:], visit)
	matchSubs(n.children[wildOne], toks[1:], visit)
}

func (b *Bus) storeRetained(msg *Message) {
	n := b.root
	for _, tok := range msg.Topic {
		if n.children == nil {
			n.children = make(map[any]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

// unsubscribe removes a subscription from the trie.
func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[t]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string // placeholder for future identity/auth
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

// NewMessage builds a message bound for this connection's bus.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		bus:   c.bus,
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Request / Reply
// -----------------------------------------------------------------------------

// Request publishes msg with a unique ReplyTo topic and returns the
// subscription on which replies arrive. The caller owns the
// subscription and must Unsubscribe when done.
func (c *Connection) Request(msg *Message) *Subscription {
	id := c.bus.replyID.Add(1)
	msg.ReplyTo = T("$reply", c.id, id)
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait publishes msg and blocks for a single reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case reply := <-sub.Channel():
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply publishes a response on the request's ReplyTo topic.
// No-op when the request did not ask for a reply.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.Publish(c.NewMessage(req.ReplyTo, payload, retained))
}
