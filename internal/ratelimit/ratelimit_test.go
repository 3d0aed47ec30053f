package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	l := New(50, 10*time.Second)
	now := time.Now()

	for i := 0; i < 50; i++ {
		assert.True(t, l.AllowAt(now), "message %d", i)
	}
	assert.False(t, l.AllowAt(now), "51st message in the same instant")

	// One token every 200ms.
	assert.False(t, l.AllowAt(now.Add(100*time.Millisecond)))
	assert.True(t, l.AllowAt(now.Add(200*time.Millisecond)))
	assert.True(t, l.AllowAt(now.Add(10*time.Second)))
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(0, time.Second)
	now := time.Now()
	for i := 0; i < 1000; i++ {
		assert.True(t, l.AllowAt(now))
	}
}
