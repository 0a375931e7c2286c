package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_Sequence(t *testing.T) {
	s := NewSession("s1")

	first := s.Begin()
	assert.True(t, s.IsLatest(first))

	second := s.Begin()
	assert.False(t, s.IsLatest(first))
	assert.True(t, s.IsLatest(second))
	assert.Greater(t, second, first)
}

func TestSession_ConcurrentBegin(t *testing.T) {
	s := NewSession("s1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Begin()
		}()
	}
	wg.Wait()

	assert.True(t, s.IsLatest(50))
}

func TestSessionRegistry(t *testing.T) {
	r := NewSessionRegistry(10, time.Minute)

	a := r.Get("1:a")
	assert.Same(t, a, r.Get("1:a"))
	assert.NotSame(t, a, r.Get("1:b"))
	assert.Equal(t, 0, r.Sweep())
}

func TestSessionRegistry_Expiry(t *testing.T) {
	r := NewSessionRegistry(10, time.Minute)
	now := time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC)
	r.sessions.WithClock(func() time.Time { return now })

	a := r.Get("1:a")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	assert.NotSame(t, a, r.Get("1:a"))
}
