package msg

import (
	"sync"

	"github.com/google/uuid"
)

// Topic partitions published messages.
type Topic int

const (
	// Status carries free-form state reports.
	Status Topic = iota
	// NodeAdded announces a node joining an energy system.
	NodeAdded
	// Reading carries a measurement tagged with a node label.
	Reading
)

func (t Topic) String() string {
	switch t {
	case Status:
		return "status"
	case NodeAdded:
		return "node_added"
	case Reading:
		return "reading"
	}
	return "unknown"
}

// Publisher is an interface for objects that allow subscription to their
// events.
type Publisher interface {
	Subscribe(uuid.UUID, Topic, Listener)
	SubscribeTo(uuid.UUID, Topic, uuid.UUID, Listener)
	Unsubscribe(uuid.UUID)
}

// Listener is a callback invoked synchronously for each delivered message.
type Listener func(Msg)

// Msg is a single published event.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function.
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID.
func (v Msg) PID() uuid.UUID {
	return v.sender
}

// Topic returns the topic the message was published on.
func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data.
func (v Msg) Payload() interface{} {
	return v.payload
}

type subscription struct {
	subscriber uuid.UUID
	sender     uuid.UUID
	fn         Listener
}

// PubSub delivers messages to listeners synchronously, in subscription order
// per topic. A panic in a listener propagates to the publishing caller.
type PubSub struct {
	mux  *sync.Mutex
	pid  uuid.UUID
	subs map[Topic][]subscription
}

// NewPublisher returns a PubSub owned by pid.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{&sync.Mutex{}, pid, make(map[Topic][]subscription)}
}

// PID returns the registry owner's PID.
func (p *PubSub) PID() uuid.UUID {
	return p.pid
}

// Subscribe registers fn for every message published on topic.
func (p *PubSub) Subscribe(subscriber uuid.UUID, topic Topic, fn Listener) {
	p.SubscribeTo(subscriber, topic, uuid.Nil, fn)
}

// SubscribeTo registers fn for messages on topic from a single sender.
// A uuid.Nil sender matches all senders.
func (p *PubSub) SubscribeTo(subscriber uuid.UUID, topic Topic, sender uuid.UUID, fn Listener) {
	p.mux.Lock()
	defer p.mux.Unlock()
	p.subs[topic] = append(p.subs[topic], subscription{subscriber, sender, fn})
}

// Unsubscribe drops every listener registered by the subscriber.
func (p *PubSub) Unsubscribe(subscriber uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for topic, subs := range p.subs {
		kept := make([]subscription, 0, len(subs))
		for _, s := range subs {
			if s.subscriber != subscriber {
				kept = append(kept, s)
			}
		}
		p.subs[topic] = kept
	}
}

// Publish broadcasts payload on topic with the registry owner as sender.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.Forward(New(p.pid, topic, payload))
}

// Send broadcasts payload on topic attributed to an explicit sender.
func (p *PubSub) Send(sender uuid.UUID, topic Topic, payload interface{}) {
	p.Forward(New(sender, topic, payload))
}

// Forward redelivers an existing message under its original sender. The
// subscription list is snapshotted before delivery, so listeners may
// subscribe or unsubscribe while being notified.
func (p *PubSub) Forward(m Msg) {
	p.mux.Lock()
	subs := append([]subscription(nil), p.subs[m.topic]...)
	p.mux.Unlock()

	for _, s := range subs {
		if s.sender != uuid.Nil && s.sender != m.sender {
			continue
		}
		s.fn(m)
	}
}
