package channels_test

import (
	"sync"
	"testing"

	"github.com/alkime/docvoice/pkg/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNonBlock(t *testing.T) {
	t.Run("buffered channel with capacity", func(t *testing.T) {
		ch := make(chan int, 2)
		assert.NoError(t, channels.SendNonBlock(ch, 42))
		assert.Equal(t, 42, <-ch)
	})

	t.Run("full channel", func(t *testing.T) {
		ch := make(chan int, 1)
		ch <- 1
		assert.ErrorIs(t, channels.SendNonBlock(ch, 42), channels.ErrChannelFull)
	})

	t.Run("closed channel", func(t *testing.T) {
		ch := make(chan int)
		close(ch)
		assert.ErrorIs(t, channels.SendNonBlock(ch, 42), channels.ErrChannelClosed)
	})
}

func TestReplace(t *testing.T) {
	ch := make(chan int, 1)
	require.NoError(t, channels.Replace(ch, 1))
	require.NoError(t, channels.Replace(ch, 2))

	assert.Equal(t, 2, <-ch)
	assert.Empty(t, ch)
}

func TestLatest(t *testing.T) {
	t.Run("subscriber sees only the newest value", func(t *testing.T) {
		l := channels.NewLatest[int]()
		ch, unsubscribe := l.Subscribe()
		defer unsubscribe()

		l.Publish(1)
		l.Publish(2)
		l.Publish(3)

		assert.Equal(t, 3, <-ch)
		assert.Empty(t, ch)
	})

	t.Run("every subscriber receives", func(t *testing.T) {
		l := channels.NewLatest[string]()
		a, unsubA := l.Subscribe()
		b, unsubB := l.Subscribe()
		defer unsubA()
		defer unsubB()

		l.Publish("hello")

		assert.Equal(t, "hello", <-a)
		assert.Equal(t, "hello", <-b)
		assert.Equal(t, 2, l.Subscribers())
	})

	t.Run("unsubscribe closes and is idempotent", func(t *testing.T) {
		l := channels.NewLatest[int]()
		ch, unsubscribe := l.Subscribe()

		unsubscribe()
		unsubscribe()

		_, ok := <-ch
		assert.False(t, ok)
		assert.Equal(t, 0, l.Subscribers())

		// publishing after unsubscribe must not panic
		l.Publish(1)
	})

	t.Run("close ends all subscriptions", func(t *testing.T) {
		l := channels.NewLatest[int]()
		ch, unsubscribe := l.Subscribe()
		defer unsubscribe()

		l.Close()
		l.Close()
		l.Publish(5)

		_, ok := <-ch
		assert.False(t, ok)

		late, _ := l.Subscribe()
		_, ok = <-late
		assert.False(t, ok)
	})

	t.Run("concurrent publishers never block", func(t *testing.T) {
		l := channels.NewLatest[int]()
		ch, unsubscribe := l.Subscribe()
		defer unsubscribe()

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Go(func() { l.Publish(i) })
		}
		wg.Wait()

		assert.Len(t, ch, 1)
	})
}
