package safe

import (
	"TripBoard/logger"
)

// Go starts a new goroutine that recovers from panic,
// so that a panicking handler doesn't take the gateway down.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
