package realmbus

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func testBus(t *testing.T) *Bus {
	t.Helper()
	b := New(slog.Default())
	t.Cleanup(b.Close)
	return b
}

func TestPublishDeliversSerializedCopy(t *testing.T) {
	b := testBus(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var (
		mu  sync.Mutex
		got []payload
	)
	cancel := b.Subscribe("topic", func(data json.RawMessage) {
		var p payload
		require.NoError(t, json.Unmarshal(data, &p))
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})
	defer cancel()

	require.NoError(t, b.Publish("topic", payload{Name: "a", Count: 1}))
	require.NoError(t, b.Publish("topic", payload{Name: "b", Count: 2}))
	b.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []payload{{Name: "a", Count: 1}, {Name: "b", Count: 2}}, got)
}

func TestPublishRejectsNonSerializablePayload(t *testing.T) {
	b := testBus(t)
	err := b.Publish("topic", func() {})
	require.Error(t, err)
}

func TestEventsAfterCancelAreDropped(t *testing.T) {
	b := testBus(t)

	var (
		mu    sync.Mutex
		calls int
	)
	cancel := b.Subscribe("topic", func(json.RawMessage) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	require.NoError(t, b.Publish("topic", 1))
	b.Flush()
	cancel()

	// A late event with no listener is silently dropped, not an error.
	require.NoError(t, b.Publish("topic", 2))
	b.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}

func TestPublishOrderPreservedPerTopic(t *testing.T) {
	b := testBus(t)

	var (
		mu  sync.Mutex
		got []int
	)
	cancel := b.Subscribe("seq", func(data json.RawMessage) {
		var v int
		require.NoError(t, json.Unmarshal(data, &v))
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	defer cancel()

	for i := 0; i < 50; i++ {
		require.NoError(t, b.Publish("seq", i))
	}
	b.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 50)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	b := New(slog.Default())
	b.Close()
	require.Error(t, b.Publish("topic", 1))
}
