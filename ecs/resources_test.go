package ecs_test

import (
	"sync"
	"testing"

	"github.com/plus3/syskernel/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourcesInsertAndRead(t *testing.T) {
	resources := ecs.NewResources()
	assert.Equal(t, 0, resources.Len())

	ecs.InsertResource(resources, ScoreBoard{Points: 10})
	ecs.InsertResource(resources, Gravity{Y: -9.8})

	assert.Equal(t, 2, resources.Len())
	assert.True(t, resources.Contains(ecs.ResourceTypeOf[ScoreBoard]()))
	assert.False(t, resources.Contains(ecs.ResourceTypeOf[Settings]()))
	assert.Equal(t, []ecs.ResourceTypeId{ecs.ResourceTypeOf[Gravity](), ecs.ResourceTypeOf[ScoreBoard]()}, resources.Types())

	score, ok := ecs.ReadResource[ScoreBoard](resources)
	require.True(t, ok)
	assert.Equal(t, 10, score.Points)

	_, ok = ecs.ReadResource[Settings](resources)
	assert.False(t, ok)

	t.Run("insert replaces", func(t *testing.T) {
		ecs.InsertResource(resources, ScoreBoard{Points: 20})
		score, _ := ecs.ReadResource[ScoreBoard](resources)
		assert.Equal(t, 20, score.Points)
		assert.Equal(t, 2, resources.Len())
	})
}

func TestResourcesRemove(t *testing.T) {
	resources := ecs.NewResources()
	ecs.InsertResource(resources, ScoreBoard{Points: 3})
	ecs.InsertResource(resources, Gravity{Y: 1})

	score, ok := ecs.RemoveResource[ScoreBoard](resources)
	require.True(t, ok)
	assert.Equal(t, 3, score.Points)
	assert.False(t, resources.Contains(ecs.ResourceTypeOf[ScoreBoard]()))
	assert.Equal(t, 1, resources.Len())

	_, ok = ecs.RemoveResource[ScoreBoard](resources)
	assert.False(t, ok)

	// The freed slot is reused
	ecs.InsertResource(resources, Settings{Volume: 5})
	assert.Equal(t, 2, resources.Len())
	settings, ok := ecs.ReadResource[Settings](resources)
	require.True(t, ok)
	assert.Equal(t, 5, settings.Volume)
	gravity, _ := ecs.ReadResource[Gravity](resources)
	assert.Equal(t, 1.0, gravity.Y)
}

func TestResourcesBorrowChecking(t *testing.T) {
	resources := ecs.NewResources()
	ecs.InsertResource(resources, ScoreBoard{Points: 1})

	t.Run("shared borrows coexist", func(t *testing.T) {
		a, err := ecs.TryGetResource[ScoreBoard](resources)
		require.NoError(t, err)
		b, err := ecs.TryGetResource[ScoreBoard](resources)
		require.NoError(t, err)
		assert.Same(t, a.Get(), b.Get())

		_, err = ecs.TryGetResourceMut[ScoreBoard](resources)
		assert.ErrorIs(t, err, ecs.ErrResourceBorrowed)

		a.Release()
		_, err = ecs.TryGetResourceMut[ScoreBoard](resources)
		assert.ErrorIs(t, err, ecs.ErrResourceBorrowed, "one shared borrow still outstanding")

		b.Release()
		b.Release()
		w, err := ecs.TryGetResourceMut[ScoreBoard](resources)
		require.NoError(t, err)
		w.Release()
	})

	t.Run("exclusive borrow blocks everything", func(t *testing.T) {
		w, ok := ecs.GetResourceMut[ScoreBoard](resources)
		require.True(t, ok)
		w.Get().Points = 99

		_, err := ecs.TryGetResource[ScoreBoard](resources)
		assert.ErrorIs(t, err, ecs.ErrResourceBorrowed)
		_, err = ecs.TryGetResourceMut[ScoreBoard](resources)
		assert.ErrorIs(t, err, ecs.ErrResourceBorrowed)
		assert.Panics(t, func() { ecs.GetResource[ScoreBoard](resources) })
		assert.Panics(t, func() { ecs.InsertResource(resources, ScoreBoard{}) })
		assert.Panics(t, func() { ecs.RemoveResource[ScoreBoard](resources) })

		w.Release()
		score, _ := ecs.ReadResource[ScoreBoard](resources)
		assert.Equal(t, 99, score.Points)
	})

	t.Run("missing resource", func(t *testing.T) {
		_, err := ecs.TryGetResource[Settings](resources)
		assert.ErrorIs(t, err, ecs.ErrResourceNotFound)
		assert.ErrorContains(t, err, "ecs_test.Settings")

		_, err = ecs.TryGetResourceMut[Settings](resources)
		assert.ErrorIs(t, err, ecs.ErrResourceNotFound)

		_, ok := ecs.GetResource[Settings](resources)
		assert.False(t, ok)
		_, ok = ecs.GetResourceMut[Settings](resources)
		assert.False(t, ok)
	})
}

func TestResourcesConcurrentSharedBorrows(t *testing.T) {
	resources := ecs.NewResources()
	ecs.InsertResource(resources, Gravity{Y: -9.8})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				ref, ok := ecs.GetResource[Gravity](resources)
				if ok {
					_ = ref.Get().Y
					ref.Release()
				}
			}
		}()
	}
	wg.Wait()

	w, err := ecs.TryGetResourceMut[Gravity](resources)
	require.NoError(t, err, "every shared borrow must have been released")
	w.Release()
}
