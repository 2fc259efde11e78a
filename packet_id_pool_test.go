package mqttendpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketIDPoolAcquireSkipsZero(t *testing.T) {
	p := newPacketIDPool()
	id, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id)
	assert.True(t, p.InUse(1))
	assert.False(t, p.InUse(0))
}

func TestPacketIDPoolAcquireDoesNotReuseUntilReleased(t *testing.T) {
	p := newPacketIDPool()
	a, _ := p.Acquire()
	b, _ := p.Acquire()
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, p.Count())

	require.NoError(t, p.Release(a))
	assert.Equal(t, 1, p.Count())
	assert.False(t, p.InUse(a))
}

func TestPacketIDPoolReleaseUnallocatedFails(t *testing.T) {
	p := newPacketIDPool()
	err := p.Release(5)
	assert.ErrorIs(t, err, ErrPacketIDNotFound)
	err = p.Release(0)
	assert.ErrorIs(t, err, ErrPacketIDNotFound)
}

func TestPacketIDPoolRegisterRejectsDuplicate(t *testing.T) {
	p := newPacketIDPool()
	require.NoError(t, p.Register(10))
	err := p.Register(10)
	assert.ErrorIs(t, err, ErrPacketIDInUse)
}

func TestPacketIDPoolRegisterRejectsZero(t *testing.T) {
	p := newPacketIDPool()
	err := p.Register(0)
	assert.Error(t, err)
}

func TestPacketIDPoolCursorRotates(t *testing.T) {
	p := newPacketIDPool()
	a, _ := p.Acquire()
	require.NoError(t, p.Release(a))
	b, _ := p.Acquire()
	assert.Equal(t, a+1, b)
}

func TestPacketIDPoolClearFreesEverything(t *testing.T) {
	p := newPacketIDPool()
	for i := 0; i < 10; i++ {
		_, _ = p.Acquire()
	}
	p.Clear()
	assert.Equal(t, 0, p.Count())
	id, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id)
}

func TestPacketIDPoolExhaustion(t *testing.T) {
	p := newPacketIDPool()
	for i := 0; i < 65535; i++ {
		_, err := p.Acquire()
		require.NoError(t, err)
	}
	_, err := p.Acquire()
	assert.ErrorIs(t, err, ErrPacketIDExhausted)
}
