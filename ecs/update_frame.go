package ecs

// UpdateFrame is the resource the Scheduler refreshes before every tick. Systems read it
// through Read[UpdateFrame].
type UpdateFrame struct {
	DeltaTime float64
	Tick      uint64
}
