package ports

import "time"

// TimelockScheduler arms one-shot expiry jobs, one per swap id. Re-arming
// the same id replaces the previous job; Cancel drops it.
type TimelockScheduler interface {
	Start()
	Stop()
	ScheduleExpiry(commitId string, at time.Time, fn func()) error
	Cancel(commitId string)
}
