// File: cuculi/config/events_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub(t *testing.T) {
	h := newHub(2)

	ch1, cancel1, err := h.subscribe()
	require.NoError(t, err)
	_, cancel2, err := h.subscribe()
	require.NoError(t, err)

	_, _, err = h.subscribe()
	assert.ErrorIs(t, err, ErrTooManySubscribers)
	assert.Equal(t, 2, h.count())

	// a full buffer drops events instead of blocking
	for i := range subscriberBuffer + 5 {
		h.publish(Event{Kind: EventChanged, Revision: uint64(i)})
	}
	assert.Len(t, ch1, subscriberBuffer)
	assert.Equal(t, uint64(0), (<-ch1).Revision)

	cancel1()
	cancel1()
	assert.Equal(t, 1, h.count())
	for range ch1 {
	}

	_, _, err = h.subscribe()
	require.NoError(t, err, "a cancelled subscription frees its slot")

	h.close()
	cancel2()
	_, _, err = h.subscribe()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, h.count())
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "changed", EventChanged.String())
	assert.Equal(t, "reload_failed", EventReloadFailed.String())
	assert.Equal(t, "source_removed", EventSourceRemoved.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}
