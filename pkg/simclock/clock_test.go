package simclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVirtualClockAdvanceFiresWaiters(t *testing.T) {
	start := time.Unix(0, 0)
	c := NewVirtualClock(start)

	ch := c.After(10 * time.Second)

	select {
	case <-ch:
		t.Fatal("waiter fired before Advance")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("waiter fired too early")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, start.Add(10*time.Second), got)
	default:
		t.Fatal("waiter did not fire after deadline reached")
	}
}

func TestVirtualClockMultipleWaiters(t *testing.T) {
	c := NewVirtualClock(time.Unix(0, 0))

	chs := make([]<-chan time.Time, 3)
	for i, d := range []time.Duration{3 * time.Second, 1 * time.Second, 2 * time.Second} {
		chs[i] = c.After(d)
	}

	c.Advance(3 * time.Second)
	for _, ch := range chs {
		select {
		case <-ch:
		default:
			t.Fatal("waiter did not fire once its deadline passed")
		}
	}
}

func TestVirtualClockImmediateZeroDuration(t *testing.T) {
	c := NewVirtualClock(time.Unix(0, 0))
	ch := c.After(0)
	select {
	case <-ch:
	default:
		t.Fatal("zero-duration After should fire immediately")
	}
}
