package fleet

import (
	"sync"
)

// VehicleLocks serializes mutations per vehicle id. There is no global lock
// across vehicles; concurrent writers to the same vehicle resolve to
// last-write-wins by arrival order. The service and the location pipeline
// share one instance so status changes, assignments and location reports to
// the same vehicle never interleave.
type VehicleLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewVehicleLocks creates an empty lock set.
func NewVehicleLocks() *VehicleLocks {
	return &VehicleLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the key and returns its unlock function.
func (l *VehicleLocks) Lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
