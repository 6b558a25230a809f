package freqstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Marseau/sendguard/risk"
)

func testLimits() Limits {
	return Limits{
		MaxPerHour: 10,
		MaxPerDay:  50,
		MaxPerWeek: 200,
		Retention:  7 * 24 * time.Hour,
		Grace:      7 * 24 * time.Hour,
	}
}

func TestMemFrequencyStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	fs := NewMemFrequencyStore(testLimits())

	// unknown recipient is unconditionally allowed
	c, err := fs.Check(ctx, "+5511999990001", now)
	assert.NoError(err)
	assert.True(c.Allowed)

	for i := 0; i < 9; i++ {
		assert.NoError(fs.RecordSend(ctx, "+5511999990001", now.Add(time.Duration(i)*time.Second)))
	}
	c, err = fs.Check(ctx, "+5511999990001", now.Add(time.Minute))
	assert.NoError(err)
	assert.True(c.Allowed)

	// the count reaching the limit already violates
	assert.NoError(fs.RecordSend(ctx, "+5511999990001", now.Add(10*time.Second)))
	c, err = fs.Check(ctx, "+5511999990001", now.Add(time.Minute))
	assert.NoError(err)
	assert.False(c.Allowed)
	assert.Equal(WindowHour, c.Window)
	assert.Equal(risk.ReasonHourlyLimit, c.Reason)
	assert.Equal(10, c.Count)
	assert.Equal(10, c.Limit)

	// a different recipient is unaffected
	c, err = fs.Check(ctx, "+5511999990002", now.Add(time.Minute))
	assert.NoError(err)
	assert.True(c.Allowed)
}

func TestMemFrequencyStoreWindowOrder(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	fs := NewMemFrequencyStore(Limits{
		MaxPerHour: 100,
		MaxPerDay:  5,
		MaxPerWeek: 8,
		Retention:  7 * 24 * time.Hour,
		Grace:      7 * 24 * time.Hour,
	})

	// five sends spread over the past day but outside the past hour
	for i := 0; i < 5; i++ {
		assert.NoError(fs.RecordSend(ctx, "r1", now.Add(-20*time.Hour+time.Duration(i)*time.Minute)))
	}
	c, err := fs.Check(ctx, "r1", now)
	assert.NoError(err)
	assert.False(c.Allowed)
	assert.Equal(WindowDay, c.Window)
	assert.Equal(risk.ReasonDailyLimit, c.Reason)

	// older history trips the weekly window instead
	fs = NewMemFrequencyStore(Limits{
		MaxPerHour: 100,
		MaxPerDay:  100,
		MaxPerWeek: 3,
		Retention:  7 * 24 * time.Hour,
		Grace:      7 * 24 * time.Hour,
	})
	for i := 0; i < 3; i++ {
		assert.NoError(fs.RecordSend(ctx, "r1", now.Add(-5*24*time.Hour+time.Duration(i)*time.Minute)))
	}
	c, err = fs.Check(ctx, "r1", now)
	assert.NoError(err)
	assert.False(c.Allowed)
	assert.Equal(WindowWeek, c.Window)
	assert.Equal(risk.ReasonWeeklyLimit, c.Reason)
}

func TestMemFrequencyStoreHourlyScenario(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	fs := NewMemFrequencyStore(testLimits())

	// ten sends within the trailing 59 minutes
	for i := 0; i < 10; i++ {
		assert.NoError(fs.RecordSend(ctx, "R1", now.Add(-59*time.Minute+time.Duration(i)*time.Minute)))
	}
	c, err := fs.Check(ctx, "R1", now)
	assert.NoError(err)
	assert.False(c.Allowed)
	assert.Equal(risk.ReasonHourlyLimit, c.Reason)
}

func TestMemFrequencyStorePrune(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	fs := NewMemFrequencyStore(testLimits())

	// mixed-age history: three sends older than retention, two current
	for i := 0; i < 3; i++ {
		assert.NoError(fs.RecordSend(ctx, "old-mixed", now.Add(-8*24*time.Hour+time.Duration(i)*time.Minute)))
	}
	assert.NoError(fs.RecordSend(ctx, "old-mixed", now.Add(-time.Hour)))
	assert.NoError(fs.RecordSend(ctx, "old-mixed", now.Add(-time.Minute)))

	// a single send eight days ago; first contact predates the grace period,
	// so the whole record should be reclaimed
	assert.NoError(fs.RecordSend(ctx, "stale", now.Add(-8*24*time.Hour)))

	stats, err := fs.Prune(ctx, now)
	assert.NoError(err)
	assert.Equal(1, stats.RemovedRecipients)
	assert.Equal(4, stats.RemovedStamps)
	assert.Equal(1, stats.Recipients)

	// no entry at all remains for the stale recipient
	_, ok := fs.shard("stale").recs["stale"]
	assert.False(ok)

	// weekly count equals the remaining entry count exactly
	n, err := fs.CountSince(ctx, "old-mixed", now.Add(-7*24*time.Hour))
	assert.NoError(err)
	assert.Equal(2, n)
}

func TestMemFrequencyStoreCountSince(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	fs := NewMemFrequencyStore(testLimits())
	for i := 0; i < 5; i++ {
		assert.NoError(fs.RecordSend(ctx, "r1", now.Add(-time.Duration(i*10)*time.Second)))
	}
	n, err := fs.CountSince(ctx, "r1", now.Add(-30*time.Second))
	assert.NoError(err)
	assert.Equal(3, n)

	n, err = fs.CountSince(ctx, "nobody", now.Add(-30*time.Second))
	assert.NoError(err)
	assert.Equal(0, n)
}

func TestMemFrequencyStoreReadStats(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	fs := NewMemFrequencyStore(testLimits())
	assert.NoError(fs.RecordSend(ctx, "active", now.Add(-time.Hour)))
	assert.NoError(fs.RecordSend(ctx, "active", now.Add(-2*time.Hour)))
	assert.NoError(fs.RecordSend(ctx, "dormant", now.Add(-3*24*time.Hour)))

	stats, err := fs.ReadStats(ctx, now)
	assert.NoError(err)
	assert.Equal(2, stats.TrackedRecipients)
	assert.Equal(1, stats.ActiveRecipients)
	assert.Equal(2, stats.MessagesPastDay)
}

func TestMemFrequencyStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	fs := NewMemFrequencyStore(Limits{
		MaxPerHour: 1000,
		MaxPerDay:  1000,
		MaxPerWeek: 1000,
		Retention:  7 * 24 * time.Hour,
		Grace:      7 * 24 * time.Hour,
	})

	// Writers and readers interleave on two recipients; run with `-race`.
	// A short sleep yields the scheduler so orderings vary between runs.
	var wg sync.WaitGroup
	fnWrite := func(recipient string, times int) {
		defer wg.Done()
		for i := 0; i < times; i++ {
			assert.NoError(fs.RecordSend(ctx, recipient, now))
			time.Sleep(time.Nanosecond)
		}
	}
	fnRead := func(recipient string, times int) {
		for i := 0; i < times; i++ {
			_, err := fs.Check(ctx, recipient, now)
			assert.NoError(err)
			_, err = fs.CountSince(ctx, recipient, now.Add(-time.Minute))
			assert.NoError(err)
			time.Sleep(time.Nanosecond)
		}
	}
	wg.Add(4)
	go fnWrite("r1", 10)
	go fnWrite("r1", 10)
	go fnRead("r1", 10)
	go fnWrite("r2", 6)
	go fnWrite("r2", 6)
	go fnRead("r2", 6)
	wg.Wait()

	n, err := fs.CountSince(ctx, "r1", now.Add(-time.Minute))
	assert.NoError(err)
	assert.Equal(20, n)
	n, err = fs.CountSince(ctx, "r2", now.Add(-time.Minute))
	assert.NoError(err)
	assert.Equal(12, n)
}
