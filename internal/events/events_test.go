package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_DeliversToMatchingSubscribers(t *testing.T) {
	b := NewBroker(4)
	all, cancelAll := b.Subscribe("")
	defer cancelAll()
	runs, cancelRuns := b.Subscribe("run.1")
	defer cancelRuns()

	require.NoError(t, b.Publish("run.1", map[string]string{"step": "fetch"}))
	require.NoError(t, b.Publish("run.2", map[string]string{"step": "rank"}))

	msg := <-runs
	assert.Equal(t, "run.1", msg.Subject)
	assert.JSONEq(t, `{"step":"fetch"}`, string(msg.Data))
	assert.Len(t, runs, 0)

	assert.Equal(t, "run.1", (<-all).Subject)
	assert.Equal(t, "run.2", (<-all).Subject)
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe("")
	defer cancel()

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish("s", i))
	}
	assert.Len(t, ch, 1)
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe("")
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	require.NoError(t, b.Publish("s", "after cancel"))
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(string, any) error {
	f.calls++
	return errors.New("down")
}

func TestMulti(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe("")
	defer cancel()
	failing := &failingPublisher{}

	err := Multi{failing, nil, b}.Publish("s", 1)
	assert.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Len(t, ch, 1, "later publishers still receive the event")
}

func TestNATSClient_Integration(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" || testing.Short() {
		t.Skip("NATS_URL not set")
	}

	c, err := Connect(context.Background(), url, "", nil)
	require.NoError(t, err)
	defer c.Close()

	got := make(chan []byte, 1)
	require.NoError(t, c.Subscribe("persona.test", func(_ string, data []byte) { got <- data }))
	require.NoError(t, c.Publish("persona.test", map[string]int{"n": 1}))

	select {
	case data := <-got:
		var m map[string]int
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Equal(t, 1, m["n"])
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}
