package nearby

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()

	first := tr.Begin("phone")
	assert.True(t, tr.IsCurrent("phone", first))

	second := tr.Begin("phone")
	assert.Greater(t, second, first)
	assert.False(t, tr.IsCurrent("phone", first), "an older generation is stale")
	assert.True(t, tr.IsCurrent("phone", second))

	other := tr.Begin("tablet")
	assert.True(t, tr.IsCurrent("tablet", other), "sessions are independent")
	assert.Equal(t, 2, tr.Sessions())

	tr.Forget("tablet")
	assert.False(t, tr.IsCurrent("tablet", other))
	assert.Equal(t, 1, tr.Sessions())
}

func TestTrackerNeverReusesGenerations(t *testing.T) {
	tr := NewTracker()

	before := tr.Begin("phone")
	tr.Forget("phone")
	assert.False(t, tr.IsCurrent("phone", before))

	after := tr.Begin("phone")
	assert.NotEqual(t, before, after)
	assert.False(t, tr.IsCurrent("phone", before), "a generation from before Forget stays stale")
	assert.True(t, tr.IsCurrent("phone", after))
}
