package templatestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemTemplateStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	ts := NewMemTemplateStore(time.Hour)

	// no prior usage means allowed
	c, err := ts.Check(ctx, "appointment_reminder", "+5511999990001", now)
	assert.NoError(err)
	assert.True(c.Allowed)

	assert.NoError(ts.RecordSend(ctx, "appointment_reminder", "+5511999990001", now))

	// re-use inside the limit is blocked, with minutes rounded up
	c, err = ts.Check(ctx, "appointment_reminder", "+5511999990001", now.Add(25*time.Minute+30*time.Second))
	assert.NoError(err)
	assert.False(c.Allowed)
	assert.Equal(35, c.RetryAfterMinutes)
	assert.Equal(now, c.LastSent)

	// other template or other recipient is unaffected
	c, err = ts.Check(ctx, "promo_blast", "+5511999990001", now.Add(time.Minute))
	assert.NoError(err)
	assert.True(c.Allowed)
	c, err = ts.Check(ctx, "appointment_reminder", "+5511999990002", now.Add(time.Minute))
	assert.NoError(err)
	assert.True(c.Allowed)

	// the limit elapsing unblocks
	c, err = ts.Check(ctx, "appointment_reminder", "+5511999990001", now.Add(time.Hour))
	assert.NoError(err)
	assert.True(c.Allowed)
}

func TestMemTemplateStoreLatestWins(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	ts := NewMemTemplateStore(time.Hour)
	assert.NoError(ts.RecordSend(ctx, "tpl", "r1", now))
	assert.NoError(ts.RecordSend(ctx, "tpl", "r1", now.Add(time.Hour)))

	c, err := ts.Check(ctx, "tpl", "r1", now.Add(90*time.Minute))
	assert.NoError(err)
	assert.False(c.Allowed)
	assert.Equal(now.Add(time.Hour), c.LastSent)
	assert.Equal(1, ts.Size())
}

func TestMemTemplateStorePrune(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	now := time.Now()

	ts := NewMemTemplateStore(time.Hour)
	assert.NoError(ts.RecordSend(ctx, "tpl", "old", now.Add(-2*time.Hour)))
	assert.NoError(ts.RecordSend(ctx, "tpl", "fresh", now.Add(-30*time.Minute)))

	removed, err := ts.Prune(ctx, now)
	assert.NoError(err)
	assert.Equal(1, removed)
	assert.Equal(1, ts.Size())

	c, err := ts.Check(ctx, "tpl", "fresh", now)
	assert.NoError(err)
	assert.False(c.Allowed)
}
