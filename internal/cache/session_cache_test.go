package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-chat/internal/model"
)

func TestReplaceKeepsOrderAndCopies(t *testing.T) {
	a, b := model.NewSession(), model.NewSession()
	a.Name = "a"
	b.Name = "b"
	input := []model.Session{*a, *b}

	c := NewSessionCache()
	c.Replace(input)
	input[0].Name = "mutated"

	got := c.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
}

func TestAcquireMissing(t *testing.T) {
	c := NewSessionCache()
	s, release, ok := c.Acquire("nope")
	assert.False(t, ok)
	assert.Nil(t, s)
	assert.Nil(t, release)
}

func TestAcquireMutatesCachedSession(t *testing.T) {
	c := NewSessionCache()
	s := model.NewSession()
	c.Add(s)

	got, release, ok := c.Acquire(s.ID)
	require.True(t, ok)
	got.Name = "renamed"
	got.AddMessage(model.NewMessage(s.ID, model.RoleUser, 0, "hi"))
	release()

	snap := c.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "renamed", snap[0].Name)
	assert.Len(t, snap[0].Messages, 1)

	snap[0].Messages[0].Text = "changed"
	assert.Equal(t, "hi", c.Snapshot()[0].Messages[0].Text)
}

func TestRemove(t *testing.T) {
	c := NewSessionCache()
	a, b, d := model.NewSession(), model.NewSession(), model.NewSession()
	c.Add(a)
	c.Add(b)
	c.Add(d)

	assert.True(t, c.Remove(b.ID))
	assert.False(t, c.Remove(b.ID))
	assert.False(t, c.Contains(b.ID))

	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, a.ID, snap[0].ID)
	assert.Equal(t, d.ID, snap[1].ID)
}

func TestAcquireSerializesPerSession(t *testing.T) {
	c := NewSessionCache()
	s := model.NewSession()
	c.Add(s)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, release, ok := c.Acquire(s.ID)
			if !ok {
				return
			}
			defer release()
			got.AddMessage(model.NewMessage(s.ID, model.RoleUser, 0, "x"))
		}()
	}
	wg.Wait()

	assert.Len(t, c.Snapshot()[0].Messages, 50)
	assert.Equal(t, 1, c.Len())
}
