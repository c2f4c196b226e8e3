package engine

// familyLocks is the per-family transaction gate: at most one call of a
// family executes at a time. A second request of the same family waits
// cooperatively, re-checking once per scheduler tick, until the flag
// clears. No fairness among waiters, only eventual progress.
//
// All methods assume the engine mutex is held.
type familyLocks struct {
	held map[string]bool
}

func newFamilyLocks() *familyLocks {
	return &familyLocks{held: make(map[string]bool)}
}

// tryAcquire takes the family's lock if it is free.
func (l *familyLocks) tryAcquire(family string) bool {
	if l.held[family] {
		return false
	}
	l.held[family] = true
	return true
}

// release frees the family's lock unconditionally.
func (l *familyLocks) release(family string) {
	delete(l.held, family)
}
