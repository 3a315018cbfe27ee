package eventpubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	t.Run("delivers only to the matching topic", func(t *testing.T) {
		bus := New()

		var a, b []int
		require.NoError(t, bus.Subscribe("smd+1", func(v int) { a = append(a, v) }))
		require.NoError(t, bus.Subscribe("smd+2", func(v int) { b = append(b, v) }))

		bus.Publish("smd+1", 10)
		bus.Publish("smd+2", 20)
		bus.Publish("smd+3", 30)

		assert.Equal(t, []int{10}, a)
		assert.Equal(t, []int{20}, b)
	})

	t.Run("reports subscribers", func(t *testing.T) {
		bus := New()
		assert.False(t, bus.HasSubscribers("smd+1"))
		require.NoError(t, bus.Subscribe("smd+1", func(int) {}))
		assert.True(t, bus.HasSubscribers("smd+1"))
	})

	t.Run("rejects non-function handlers", func(t *testing.T) {
		bus := New()
		assert.Error(t, bus.Subscribe("smd+1", 42))
	})
}
