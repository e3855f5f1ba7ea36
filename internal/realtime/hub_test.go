package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"shopfront/internal/events"
	"shopfront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, sub *Subscription) Envelope {
	t.Helper()
	select {
	case frame := <-sub.C():
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return Envelope{}
	}
}

func TestHub_PublishReachesTopicSubscribersOnly(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4)
	shirt := hub.Subscribe(events.Topic("shirt"))
	shirt2 := hub.Subscribe(events.Topic("shirt"))
	hat := hub.Subscribe(events.Topic("hat"))
	assert.Equal(t, "sizes-update-shirt", shirt.Topic())
	assert.Equal(t, "sizes-update-hat", hat.Topic())

	update := events.SizesUpdate{
		ProductID:   "shirt",
		Sizes:       []models.SizeEntry{{Name: "M", Quantity: 1}},
		UpdatedSize: events.UpdatedSize{Name: "M", Quantity: 1},
	}
	require.NoError(t, hub.Publish(context.Background(), events.Topic("shirt"), update))

	for _, sub := range []*Subscription{shirt, shirt2} {
		env := receive(t, sub)
		assert.Equal(t, "sizes-update-shirt", env.Event)

		var got events.SizesUpdate
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "shirt", got.ProductID)
		assert.Equal(t, events.UpdatedSize{Name: "M", Quantity: 1}, got.UpdatedSize)
	}

	select {
	case <-hat.C():
		t.Fatal("hat subscriber received a shirt update")
	default:
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1)
	sub := hub.Subscribe("t")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Broadcast("t", []byte(`{}`))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
	assert.EqualValues(t, 9, sub.Dropped())
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1)
	sub := hub.Subscribe("t")
	assert.Equal(t, 1, hub.Subscribers("t"))

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	assert.Equal(t, 0, hub.Subscribers("t"))

	_, open := <-sub.C()
	assert.False(t, open)
	assert.Equal(t, 0, hub.Broadcast("t", []byte(`{}`)))
}

func TestHub_PublishWithNoSubscribers(t *testing.T) {
	hub := NewHub(nil, 0)
	assert.NoError(t, hub.Publish(context.Background(), "nobody", map[string]int{"a": 1}))
}

func TestHub_Forward(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1)
	sub := hub.Subscribe("sizes-update-p1")

	require.NoError(t, hub.Forward("sizes-update-p1", []byte(`{"productId":"p1"}`)))
	env := receive(t, sub)
	assert.Equal(t, "sizes-update-p1", env.Event)
	assert.JSONEq(t, `{"productId":"p1"}`, string(env.Data))

	assert.Error(t, hub.Forward("sizes-update-p1", []byte(`not json`)))
}
