package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/logic"
)

var _ entity.Clock = (*DeterministicClock)(nil)

func TestDeterministicClock_NextAndReset(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	clock := NewDeterministicClock()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				clock.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), clock.Current())
}

func TestDeterministicClock_NumbersEngineEvents(t *testing.T) {
	run := func(clock *DeterministicClock) []int64 {
		eng, err := entity.New(logic.NewKB(), entity.WithClock(clock))
		require.NoError(t, err)
		require.NoError(t, eng.DefineAction("a", "push", 1, []entity.EffectSpec{{On: "x", Formula: "value + 0.1"}}))
		for range 3 {
			_, err := eng.ApplyAction("a", "push", "b", 1)
			require.NoError(t, err)
		}
		var seqs []int64
		for _, ev := range eng.Events(entity.EventFilter{}) {
			seqs = append(seqs, ev.Seq)
		}
		return seqs
	}

	clock := NewDeterministicClock()
	first := run(clock)
	clock.Reset()
	second := run(clock)

	assert.Equal(t, []int64{1, 2, 3}, first)
	assert.Equal(t, first, second)
}
