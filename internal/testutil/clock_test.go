package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceClock(t *testing.T) {
	clock := NewSequenceClock()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())

	clock.Reset()
	assert.Equal(t, int64(1), clock.Next())
}

func TestSequenceClock_Concurrent(t *testing.T) {
	clock := NewSequenceClock()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Next()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), clock.Current())
}

func TestFixedIDs(t *testing.T) {
	assert.Equal(t, "test-compilation", NewFixedIDs("").Generate())
	g := NewFixedIDs("c-1")
	assert.Equal(t, g.Generate(), g.Generate())
}
