package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemClock_NonDecreasing(t *testing.T) {
	c := NewSystemClock()

	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		assert.False(t, now.Before(prev), "clock went backwards")
		prev = now
	}
}

func TestSystemClock_UTC(t *testing.T) {
	c := NewSystemClock()
	assert.Equal(t, "UTC", c.Now().Location().String())
}
