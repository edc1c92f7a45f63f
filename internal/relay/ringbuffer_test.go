package relay

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
)

func TestRingBuffer_PartialFill(t *testing.T) {
	ring := NewRingBuffer(5)
	ring.Append(sharedEvents.Envelope{Type: "a"})
	ring.Append(sharedEvents.Envelope{Type: "b"})

	assert.Equal(t, 2, ring.Len())
	snap := ring.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Type)
	assert.Equal(t, "b", snap[1].Type)
}

func TestRingBuffer_WrapAroundKeepsNewest(t *testing.T) {
	ring := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		ring.Append(sharedEvents.Envelope{Type: "e" + strconv.Itoa(i)})
	}

	// Caben 3: quedan los últimos, en orden de llegada.
	assert.Equal(t, 3, ring.Len())
	snap := ring.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "e2", snap[0].Type)
	assert.Equal(t, "e3", snap[1].Type)
	assert.Equal(t, "e4", snap[2].Type)
}

func TestRingBuffer_DefaultSize(t *testing.T) {
	ring := NewRingBuffer(0)
	ring.Append(sharedEvents.Envelope{Type: "a"})
	assert.Equal(t, 1, ring.Len())
}
