package ecs_test

import (
	"errors"
	"fmt"

	"github.com/plus3/syskernel/ecs"
)

// ExampleResources shows checked borrows of global resources.
func ExampleResources() {
	resources := ecs.NewResources()
	ecs.InsertResource(resources, ScoreBoard{Points: 10})

	score, _ := ecs.GetResourceMut[ScoreBoard](resources)
	score.Get().Points += 5

	_, err := ecs.TryGetResource[ScoreBoard](resources)
	fmt.Println("while borrowed:", errors.Is(err, ecs.ErrResourceBorrowed))
	score.Release()

	value, _ := ecs.ReadResource[ScoreBoard](resources)
	fmt.Println("points:", value.Points)

	_, err = ecs.TryGetResource[Gravity](resources)
	fmt.Println(err)

	// Output:
	// while borrowed: true
	// points: 15
	// resource not found: ecs_test.Gravity
}

// ExampleMapRead narrows an accessor to one field of a resource. Accessors
// compare by the address they reference, not by value.
func ExampleMapRead() {
	resources := ecs.NewResources()
	ecs.InsertResource(resources, Settings{Volume: 7, Difficulty: 7})

	settings := ecs.Read[Settings]{}.FetchUnchecked(resources, nil)
	volume := ecs.MapRead(settings, func(s *Settings) *int { return &s.Volume })
	difficulty := ecs.MapRead(settings, func(s *Settings) *int { return &s.Difficulty })

	fmt.Println("same value:", *volume.Get() == *difficulty.Get())
	fmt.Println("same accessor:", volume.Equal(difficulty))

	// Output:
	// same value: true
	// same accessor: false
}
