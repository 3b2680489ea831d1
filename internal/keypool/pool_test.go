package keypool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_AcquireRotatesAndSkipsCooldown(t *testing.T) {
	p := New([]string{"a", "b"}, time.Hour)

	k1, ok := p.Acquire()
	require.True(t, ok)
	p.Cooldown(k1)

	k2, ok := p.Acquire()
	require.True(t, ok)
	assert.NotEqual(t, k1, k2)
}

func TestPool_AllCoolingDownWhenEveryKeyExhausted(t *testing.T) {
	p := New([]string{"a"}, time.Hour)

	k, ok := p.Acquire()
	require.True(t, ok)
	p.Cooldown(k)

	_, ok = p.Acquire()
	assert.False(t, ok)
	assert.True(t, p.AllCoolingDown())
}

func TestPool_EmptyPoolNeverAcquires(t *testing.T) {
	p := New(nil, time.Hour)
	_, ok := p.Acquire()
	assert.False(t, ok)
	assert.True(t, p.AllCoolingDown())
}

func TestPool_CooldownExpires(t *testing.T) {
	p := New([]string{"a"}, time.Millisecond)
	k, _ := p.Acquire()
	p.Cooldown(k)
	time.Sleep(5 * time.Millisecond)

	_, ok := p.Acquire()
	assert.True(t, ok)
}
