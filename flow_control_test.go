package mqttendpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendQuotaBasicAcquireRelease(t *testing.T) {
	q := newSendQuota(2)
	assert.True(t, q.CanSend())
	assert.Equal(t, uint16(2), q.Available())

	q.Acquire()
	assert.Equal(t, uint16(1), q.Available())
	q.Acquire()
	assert.False(t, q.CanSend())
	assert.Equal(t, uint16(0), q.Available())

	q.Release()
	assert.True(t, q.CanSend())
	assert.Equal(t, uint16(1), q.Available())
}

func TestSendQuotaZeroLimitMeansUnlimited(t *testing.T) {
	q := newSendQuota(0)
	assert.Equal(t, uint16(65535), q.Available())
}

func TestSendQuotaReleaseNeverExceedsLimit(t *testing.T) {
	q := newSendQuota(1)
	q.Release()
	q.Release()
	assert.Equal(t, uint16(1), q.Available())
}

func TestSendQuotaResetLoweringLimitCanGoNegative(t *testing.T) {
	q := newSendQuota(5)
	q.Acquire()
	q.Acquire()
	q.Acquire() // 3 outstanding, 2 available

	q.Reset(2) // new limit lower than outstanding count
	assert.False(t, q.CanSend())
	assert.Equal(t, uint16(0), q.Available())

	q.Release()
	assert.Equal(t, uint16(0), q.Available()) // back to zero internally
	q.Release()
	assert.Equal(t, uint16(1), q.Available())
}

func TestSendQuotaResetPreservesOutstandingCount(t *testing.T) {
	q := newSendQuota(4)
	q.Acquire()
	q.Reset(10)
	assert.Equal(t, uint16(9), q.Available())
}
