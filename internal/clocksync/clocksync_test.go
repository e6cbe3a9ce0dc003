package clocksync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSync_InitialiseLearnsOffsetOnce(t *testing.T) {
	local := int64(1000)
	s := New(func() int64 { return local })

	s.Initialise(5000) // offset = 5000 - 1000 = 4000
	require.True(t, s.Initialised())

	local = 2000 // later calls to nowFn must not move the offset
	s.Initialise(9999)
	require.Equal(t, int64(4000), s.offsetMS)
}

func TestSync_ConvertAppliesLearnedOffset(t *testing.T) {
	s := New(func() int64 { return 1000 })
	s.Initialise(5000)

	require.Equal(t, int64(6000), s.Convert(10000))
}

func TestSync_NotInitialisedByDefault(t *testing.T) {
	s := New(func() int64 { return 0 })
	require.False(t, s.Initialised())
}
