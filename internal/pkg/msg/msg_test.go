package msg

import (
	"testing"

	"github.com/google/uuid"
	"gotest.tools/v3/assert"
)

func newPID() uuid.UUID {
	pid, err := uuid.NewUUID()
	if err != nil {
		panic(err)
	}
	return pid
}

func TestSubscribe(t *testing.T) {
	pubsub := NewPublisher(newPID())

	var got []interface{}
	pubsub.Subscribe(newPID(), Status, func(m Msg) {
		got = append(got, m.Payload())
	})

	pubsub.Publish(Status, 1.0)
	pubsub.Publish(Status, 2.0)

	assert.Equal(t, len(got), 2)
	assert.Equal(t, got[0], 1.0)
	assert.Equal(t, got[1], 2.0)
}

func TestDeliveryOrder(t *testing.T) {
	pubsub := NewPublisher(newPID())

	var order []int
	pubsub.Subscribe(newPID(), Status, func(Msg) { order = append(order, 1) })
	pubsub.Subscribe(newPID(), Status, func(Msg) { order = append(order, 2) })
	pubsub.Subscribe(newPID(), Status, func(Msg) { order = append(order, 3) })

	pubsub.Publish(Status, nil)

	assert.Equal(t, len(order), 3)
	assert.Equal(t, order[0], 1)
	assert.Equal(t, order[1], 2)
	assert.Equal(t, order[2], 3)
}

func TestSubscribeToSenderFilter(t *testing.T) {
	pubsub := NewPublisher(newPID())
	sender1 := newPID()
	sender2 := newPID()

	var fromSender1 int
	var fromAll int
	pubsub.SubscribeTo(newPID(), NodeAdded, sender1, func(Msg) { fromSender1++ })
	pubsub.Subscribe(newPID(), NodeAdded, func(Msg) { fromAll++ })

	pubsub.Send(sender1, NodeAdded, nil)
	pubsub.Send(sender2, NodeAdded, nil)

	assert.Equal(t, fromSender1, 1)
	assert.Equal(t, fromAll, 2)
}

func TestUnsubscribe(t *testing.T) {
	pubsub := NewPublisher(newPID())
	sub := newPID()

	var count int
	pubsub.Subscribe(sub, Status, func(Msg) { count++ })
	pubsub.Subscribe(sub, NodeAdded, func(Msg) { count++ })

	pubsub.Publish(Status, nil)
	assert.Equal(t, count, 1)

	pubsub.Unsubscribe(sub)
	pubsub.Publish(Status, nil)
	pubsub.Publish(NodeAdded, nil)
	assert.Equal(t, count, 1)
}

func TestPublishSender(t *testing.T) {
	owner := newPID()
	pubsub := NewPublisher(owner)

	var sender uuid.UUID
	pubsub.Subscribe(newPID(), Status, func(m Msg) { sender = m.PID() })

	pubsub.Publish(Status, nil)
	assert.Equal(t, sender, owner)

	explicit := newPID()
	pubsub.Send(explicit, Status, nil)
	assert.Equal(t, sender, explicit)
}

func TestForwardKeepsSender(t *testing.T) {
	pubsub := NewPublisher(newPID())
	origin := newPID()

	var sender uuid.UUID
	var topic Topic
	pubsub.Subscribe(newPID(), Reading, func(m Msg) {
		sender = m.PID()
		topic = m.Topic()
	})

	pubsub.Forward(New(origin, Reading, 42.0))

	assert.Equal(t, sender, origin)
	assert.Equal(t, topic, Reading)
}

func TestListenerPanicPropagates(t *testing.T) {
	pubsub := NewPublisher(newPID())
	pubsub.Subscribe(newPID(), Status, func(Msg) { panic("boom") })

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("listener panic did not reach the publisher")
		}
	}()
	pubsub.Publish(Status, nil)
}

func TestSubscribeDuringDelivery(t *testing.T) {
	pubsub := NewPublisher(newPID())

	var late int
	pubsub.Subscribe(newPID(), Status, func(Msg) {
		pubsub.Subscribe(newPID(), Status, func(Msg) { late++ })
	})

	// a listener added mid-delivery sees only later messages
	pubsub.Publish(Status, nil)
	assert.Equal(t, late, 0)

	pubsub.Publish(Status, nil)
	assert.Equal(t, late, 1)
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, Status.String(), "status")
	assert.Equal(t, NodeAdded.String(), "node_added")
	assert.Equal(t, Reading.String(), "reading")
	assert.Equal(t, Topic(42).String(), "unknown")
}
