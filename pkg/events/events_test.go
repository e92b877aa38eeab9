package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wrench-sim/wrench/pkg/types"
)

func TestBrokerPublishDelivers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&types.Event{Kind: types.EventCompoundJobCompleted, JobID: "job-1"})

	select {
	case ev := <-sub:
		assert.Equal(t, types.EventCompoundJobCompleted, ev.Kind)
		assert.Equal(t, "job-1", ev.JobID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	subs := make([]Subscriber, 3)
	for i := range subs {
		subs[i] = b.Subscribe()
	}
	assert.Equal(t, 3, b.SubscriberCount())

	b.Publish(&types.Event{Kind: types.EventStandardJobFailed, JobID: "job-2"})

	for _, sub := range subs {
		select {
		case ev := <-sub:
			assert.Equal(t, "job-2", ev.JobID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after Unsubscribe")
}
