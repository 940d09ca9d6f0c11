package reconciler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Starts(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())
	assert.Equal(t, int64(41), NewClockAt(41).Current())
}

func TestClock_Next(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_SharedAcrossReconcilers(t *testing.T) {
	c := NewClock()
	a := newFixture(t, WithClock(c))
	b := newFixture(t, WithClock(c))

	a.render(t, items("x"))
	b.render(t, items("y"))
	a.render(t, items("z"))

	assert.Equal(t, int64(3), a.r.Generation())
	assert.Equal(t, int64(2), b.r.Generation())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	const goroutines = 50
	const calls = 100

	var wg sync.WaitGroup
	seen := make(chan int64, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seen <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		unique[v] = true
	}
	assert.Len(t, unique, goroutines*calls)
	assert.Equal(t, int64(goroutines*calls), c.Current())
}
